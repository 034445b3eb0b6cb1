package stream

// Type 事件类型
type Type string

const (
	TypeStatus   Type = "status"
	TypeProgress Type = "progress"
	TypeMetadata Type = "metadata"
	TypeContent  Type = "content"
	TypeError    Type = "error"
	TypeComplete Type = "complete"
)

// Terminal 是否为终止事件
func (t Type) Terminal() bool {
	return t == TypeComplete || t == TypeError
}

// Event 流中的一条记录，序列化为一行 JSON
type Event struct {
	BookID    string      `json:"bookId"`
	ChapterID string      `json:"chapterId"`
	Type      Type        `json:"type"`
	Data      interface{} `json:"data"`
}

// Metadata metadata 事件的负载，缺失的链接序列化为 null
type Metadata struct {
	Title   string  `json:"title"`
	PrevURL *string `json:"prevUrl"`
	NextURL *string `json:"nextUrl"`
}

// NewMetadata 空串链接视为不存在
func NewMetadata(title, prevURL, nextURL string) Metadata {
	return Metadata{Title: title, PrevURL: optional(prevURL), NextURL: optional(nextURL)}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
