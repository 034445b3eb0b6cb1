package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// 超过该长度的行按格式错误跳过
const maxLineSize = 8 << 20

// Record 解码后的事件，Data 保留原始 JSON
type Record struct {
	BookID    string          `json:"bookId"`
	ChapterID string          `json:"chapterId"`
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// Decoder 从 NDJSON 流中读取事件，跳过无法解析或过长的行
type Decoder struct {
	reader  *bufio.Reader
	max     int
	skipped int
}

// NewDecoder 创建解码器
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReaderSize(r, 64*1024), max: maxLineSize}
}

// Next 返回下一条事件，流结束时返回 io.EOF
func (d *Decoder) Next() (*Record, error) {
	for {
		line, tooLong, err := d.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if tooLong {
			d.skipped++
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			var rec Record
			if jerr := json.Unmarshal(line, &rec); jerr == nil && rec.Type != "" {
				return &rec, nil
			}
			d.skipped++
		}
		if err != nil {
			return nil, io.EOF
		}
	}
}

// readLine 读取一行；超过上限时丢弃剩余部分并报告 tooLong
func (d *Decoder) readLine() (line []byte, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, rerr := d.reader.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > d.max {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		return buf, tooLong, rerr
	}
}

// Skipped 被跳过的格式错误行数
func (d *Decoder) Skipped() int {
	return d.skipped
}

// State 按顺序折叠事件得到的最终状态
type State struct {
	Title    string
	PrevURL  string
	NextURL  string
	Body     string
	Progress int
	Status   string
	Err      string
	Complete bool
	Events   int
}

// Apply 应用一条事件
func (s *State) Apply(rec *Record) {
	s.Events++
	switch rec.Type {
	case TypeStatus:
		_ = json.Unmarshal(rec.Data, &s.Status)
	case TypeProgress:
		var p int
		if json.Unmarshal(rec.Data, &p) == nil && p > s.Progress {
			s.Progress = p
		}
	case TypeMetadata:
		var md Metadata
		if json.Unmarshal(rec.Data, &md) == nil {
			s.Title = md.Title
			s.PrevURL = deref(md.PrevURL)
			s.NextURL = deref(md.NextURL)
		}
	case TypeContent:
		var fragment string
		if json.Unmarshal(rec.Data, &fragment) == nil {
			s.Body += fragment
		}
	case TypeError:
		_ = json.Unmarshal(rec.Data, &s.Err)
	case TypeComplete:
		s.Complete = true
	}
}

// Fold 读取整个流并返回最终状态，onEvent 可为 nil
func Fold(r io.Reader, onEvent func(*Record, *State)) (*State, error) {
	dec := NewDecoder(r)
	state := &State{}
	for {
		rec, err := dec.Next()
		if err == io.EOF {
			return state, nil
		}
		if err != nil {
			return state, err
		}
		state.Apply(rec)
		if onEvent != nil {
			onEvent(rec, state)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
