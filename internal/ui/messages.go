package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/RichardoC/dehost/internal/models"
)

// BubbleStyle is how a message bubble is drawn.
type BubbleStyle int

const (
	BubbleSettled BubbleStyle = iota
	BubbleStreaming
)

var bubbleClasses = map[BubbleStyle]string{
	BubbleSettled:   "bg-gradient-to-r from-gray-500 via-g-400 to-purple-900 text-white",
	BubbleStreaming: "bg-gradient-to-b from-bolt-elements-messages-background from-100% to-transparent bg-opacity-20",
}

const (
	bubbleBase   = "flex gap-3 p-6 w-full rounded-[calc(0.75rem-1px)]"
	bubbleSpaced = "mt-4"
	avatarText   = "DH"
)

// MessageView is one rendered entry of the message list.
type MessageView struct {
	Role     string        `json:"role"`
	HTML     template.HTML `json:"html"`
	Class    string        `json:"class"`
	Style    BubbleStyle   `json:"style"`
	InFlight bool          `json:"in_flight"`
	Avatar   string        `json:"avatar,omitempty"`
}

// MessageList is the rendered list plus the trailing spinner flag.
type MessageList struct {
	Messages []MessageView `json:"messages"`
	Spinner  bool          `json:"spinner"`
}

// Renderer turns message markdown into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var highlightClass = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// NewRenderer highlights fenced code with CSS classes rather than inline
// styles, so the sanitizer only has to let class attributes through.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(highlightClass).OnElements("pre", "span")

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
					highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
				),
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		policy: policy,
	}
}

func (r *Renderer) Render(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// BubbleFor picks the bubble style. Only the last message of a list that is
// still streaming is drawn as in flight, and never a user message.
func BubbleFor(role string, index, total int, streaming bool) BubbleStyle {
	isLast := index == total-1
	if role != models.RoleUser && streaming && isLast {
		return BubbleStreaming
	}
	return BubbleSettled
}

// List renders messages for display.
func (r *Renderer) List(messages []models.Message, streaming bool) (MessageList, error) {
	out := MessageList{
		Messages: make([]MessageView, 0, len(messages)),
		Spinner:  streaming,
	}
	for i, m := range messages {
		body, err := r.Render(m.Content)
		if err != nil {
			return MessageList{}, err
		}
		style := BubbleFor(m.Role, i, len(messages), streaming)
		class := bubbleBase + " " + bubbleClasses[style]
		if i > 0 {
			class += " " + bubbleSpaced
		}
		v := MessageView{
			Role:     m.Role,
			HTML:     body,
			Class:    class,
			Style:    style,
			InFlight: style == BubbleStreaming,
		}
		if m.Role == models.RoleUser {
			v.Avatar = avatarText
		}
		out.Messages = append(out.Messages, v)
	}
	return out, nil
}
