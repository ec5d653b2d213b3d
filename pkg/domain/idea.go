package domain

import (
	"fmt"
	"strings"
)

// IdeaType は物語の種となるアイデアの入力経路を表します。
type IdeaType string

const (
	IdeaText  IdeaType = "text"
	IdeaVoice IdeaType = "voice"
	IdeaImage IdeaType = "image"
)

// InlineImage はリクエストにインラインで埋め込む画像データです。
type InlineImage struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
}

// Idea はユーザーが最初に投入する物語の種です。
// いずれの種類でも Content を持ち、画像アイデアの場合のみ Image が必須になります。
type Idea struct {
	Type    IdeaType     `json:"type"`
	Content string       `json:"content"`
	Image   *InlineImage `json:"image,omitempty"`
}

// NewTextIdea はテキスト入力からアイデアを生成します。
func NewTextIdea(content string) Idea {
	return Idea{Type: IdeaText, Content: content}
}

// NewVoiceIdea は音声認識の確定済みトランスクリプトからアイデアを生成します。
func NewVoiceIdea(transcript string) Idea {
	return Idea{Type: IdeaVoice, Content: transcript}
}

// NewImageIdea は画像とその説明からアイデアを生成します。
func NewImageIdea(content string, data []byte, mimeType string) Idea {
	return Idea{
		Type:    IdeaImage,
		Content: content,
		Image:   &InlineImage{Data: data, MIMEType: mimeType},
	}
}

// Validate はアイデアの形が正しいかを検証します。
func (i Idea) Validate() error {
	switch i.Type {
	case IdeaText, IdeaVoice:
		if strings.TrimSpace(i.Content) == "" {
			return fmt.Errorf("%s アイデアの内容が空です", i.Type)
		}
	case IdeaImage:
		if i.Image == nil || len(i.Image.Data) == 0 {
			return fmt.Errorf("画像アイデアには画像データが必須です")
		}
		if i.Image.MIMEType == "" {
			return fmt.Errorf("画像アイデアの MIME タイプが指定されていません")
		}
	default:
		return fmt.Errorf("不明なアイデア種別です: %q", i.Type)
	}
	return nil
}

// Clone は画像バイト列まで含めたディープコピーを返します。
func (i Idea) Clone() Idea {
	c := i
	if i.Image != nil {
		img := *i.Image
		img.Data = append([]byte(nil), i.Image.Data...)
		c.Image = &img
	}
	return c
}
