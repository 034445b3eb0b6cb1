package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrStreamClosed 终止事件之后继续写入
var ErrStreamClosed = errors.New("stream already terminated")

// ProgressDone 完成时的进度
const ProgressDone = 100

type flusher interface {
	Flush()
}

// Emitter 把事件逐条写成 NDJSON 并立即刷新。
// 保证只有一个终止事件，进度单调不减，且 100 只随 complete 出现。
type Emitter struct {
	mu        sync.Mutex
	w         io.Writer
	flush     func()
	bookID    string
	chapterID string
	progress  int
	terminal  Type
	writeErr  error
	events    int
}

// NewEmitter 创建发射器，w 实现 Flush() 时每条事件后都会刷新
func NewEmitter(w io.Writer, bookID, chapterID string) *Emitter {
	e := &Emitter{w: w, bookID: bookID, chapterID: chapterID}
	if f, ok := w.(flusher); ok {
		e.flush = f.Flush
	}
	return e
}

// Status 状态文本
func (e *Emitter) Status(message string) error {
	return e.emit(TypeStatus, message)
}

// Progress 进度百分比。小于已发送值时保持原值，100 需通过 Complete 发送。
func (e *Emitter) Progress(percent int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if percent < e.progress {
		percent = e.progress
	}
	if percent >= ProgressDone {
		percent = ProgressDone - 1
	}
	if err := e.writeLocked(TypeProgress, percent); err != nil {
		return err
	}
	e.progress = percent
	return nil
}

// Metadata 章节元数据
func (e *Emitter) Metadata(md Metadata) error {
	return e.emit(TypeMetadata, md)
}

// Content 一段或整章 HTML
func (e *Emitter) Content(fragment string) error {
	return e.emit(TypeContent, fragment)
}

// Error 终止事件：失败
func (e *Emitter) Error(message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.writeLocked(TypeError, message); err != nil {
		return err
	}
	e.terminal = TypeError
	return nil
}

// Complete 终止事件：成功。先补发 progress=100。
func (e *Emitter) Complete() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.writeLocked(TypeProgress, ProgressDone); err != nil {
		return err
	}
	e.progress = ProgressDone
	if err := e.writeLocked(TypeComplete, nil); err != nil {
		return err
	}
	e.terminal = TypeComplete
	return nil
}

// Terminal 返回已发送的终止事件类型，未终止时为空串
func (e *Emitter) Terminal() Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminal
}

// LastProgress 最近一次发送的进度
func (e *Emitter) LastProgress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Count 已写出的事件数
func (e *Emitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events
}

func (e *Emitter) emit(t Type, data interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeLocked(t, data)
}

func (e *Emitter) writeLocked(t Type, data interface{}) error {
	if e.terminal != "" {
		return ErrStreamClosed
	}
	if e.writeErr != nil {
		return e.writeErr
	}

	line, err := json.Marshal(Event{BookID: e.bookID, ChapterID: e.chapterID, Type: t, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", t, err)
	}
	line = append(line, '\n')

	if _, err := e.w.Write(line); err != nil {
		e.writeErr = fmt.Errorf("write %s event: %w", t, err)
		return e.writeErr
	}
	if e.flush != nil {
		e.flush()
	}
	e.events++
	return nil
}
