package domain

// Role は会話メッセージの発話者です。
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage はストーリーボードでの1ターン分の発話です。追記のみで編集はしません。
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ProjectState はパイプライン全体で唯一の可変な集約です。
type ProjectState struct {
	Idea      *Idea      `json:"idea,omitempty"`
	Character *Character `json:"character,omitempty"`
	Story     *Story     `json:"story,omitempty"`
	Pages     Pages      `json:"pages,omitempty"`
}

// Clone は呼び出し元が共有状態を書き換えられないようにディープコピーを返します。
func (p ProjectState) Clone() ProjectState {
	var c ProjectState
	if p.Idea != nil {
		idea := p.Idea.Clone()
		c.Idea = &idea
	}
	if p.Character != nil {
		ch := *p.Character
		c.Character = &ch
	}
	if p.Story != nil {
		s := p.Story.Clone()
		c.Story = &s
	}
	c.Pages = p.Pages.Clone()
	return c
}
