package parser

import "regexp"

var (
	// TitleRegex は "# タイトル" 形式のタイトル行をキャプチャします。
	TitleRegex = regexp.MustCompile(`^#\s+(.+)`)

	// CoverRegex は "> Cover: ..." 形式の表紙コンセプト行をキャプチャします。
	CoverRegex = regexp.MustCompile(`^>\s*Cover:\s*(.+)`)

	// CharacterRegex は "**Main character:** ..." 形式のキャラクター説明行をキャプチャします。
	CharacterRegex = regexp.MustCompile(`^\*\*Main character:\*\*\s*(.+)`)

	// ChapterRegex は "## Chapter N: タイトル" 形式の章見出しをキャプチャします。
	ChapterRegex = regexp.MustCompile(`^##\s+Chapter\s+(\d+)(?::\s*(.*))?$`)

	// PageRegex は "### Page N" 形式のページ見出しをキャプチャします。
	PageRegex = regexp.MustCompile(`^###\s+Page\s+(\d+)`)

	// ImageRegex は "![alt](path)" 形式の画像行から参照パスをキャプチャします。
	ImageRegex = regexp.MustCompile(`^!\[[^\]]*\]\(([^)]*)\)`)

	// FieldRegex は "- key: value" 形式のフィールド行をキャプチャします。
	FieldRegex = regexp.MustCompile(`^\s*-\s*([a-zA-Z_]+):\s*(.+)`)
)
