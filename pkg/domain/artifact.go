package domain

// Artifact は生成されたメディアを指すローカルなハンドルです。
// 実データはアセットストアが保持し、ここには参照のみを持ちます。
type Artifact struct {
	Ref      string `json:"ref,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Size     int    `json:"size,omitempty"`
}

// IsZero は成果物が未設定かどうかを返します。
func (a Artifact) IsZero() bool {
	return a.Ref == ""
}
