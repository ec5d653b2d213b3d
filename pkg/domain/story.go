package domain

import (
	"fmt"
	"strings"
)

const (
	// ChapterCount は物語を構成する章の数です。
	ChapterCount = 4
	// PagesPerChapter は1章あたりのページ数です。
	PagesPerChapter = 4
	// PageCount は1冊のコミックを構成するページ数です。
	PageCount = ChapterCount * PagesPerChapter
	// AnimationSelectionSize はアニメーション化できるページの数です。
	AnimationSelectionSize = 4
	// ApprovalPhrase はストーリーボードの交渉を終える承認フレーズです。
	ApprovalPhrase = "i approve the story"
)

// Chapter は物語の章タイトルです。
type Chapter struct {
	Title string `json:"title"`
}

// Story は承認済みのタイトル、表紙コンセプト、章立てです。抽出後は変更しません。
type Story struct {
	Title        string    `json:"title"`
	CoverConcept string    `json:"coverConcept"`
	Chapters     []Chapter `json:"chapters"`
}

// Validate は抽出された物語が必要な項目を備えているかを検証します。
func (s Story) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("物語のタイトルが空です")
	}
	if len(s.Chapters) == 0 {
		return fmt.Errorf("物語に章がありません")
	}
	return nil
}

// Clone は章スライスを複製したコピーを返します。
func (s Story) Clone() Story {
	c := s
	c.Chapters = append([]Chapter(nil), s.Chapters...)
	return c
}

// ChapterTitles は章タイトルだけを順番どおりに返します。
func (s Story) ChapterTitles() []string {
	titles := make([]string, 0, len(s.Chapters))
	for _, ch := range s.Chapters {
		titles = append(titles, ch.Title)
	}
	return titles
}

// ContainsApproval はメッセージに承認フレーズが含まれているかを大文字小文字を無視して判定します。
func ContainsApproval(message string) bool {
	return strings.Contains(strings.ToLower(message), ApprovalPhrase)
}
