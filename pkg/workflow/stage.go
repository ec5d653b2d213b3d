package workflow

import (
	"errors"
	"fmt"
)

// Stage はウィザードの工程を表します。遷移は前進のみで、工程2だけが同じ工程での再試行を持ちます。
type Stage int

const (
	StageSpark Stage = iota + 1
	StageCharacterLab
	StageStoryboard
	StageCreationEngine
	StageAnimate
	StagePremiere
)

var stageNames = map[Stage]string{
	StageSpark:          "Spark",
	StageCharacterLab:   "Character Lab",
	StageStoryboard:     "Storyboard",
	StageCreationEngine: "Creation Engine",
	StageAnimate:        "Animate",
	StagePremiere:       "Premiere",
}

// String は工程の表示名を返します。
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

var (
	// ErrBusy は別の操作が進行中であることを表します。
	ErrBusy = errors.New("another operation is already in progress")
	// ErrWrongStage は現在の工程では実行できない操作が呼ばれたことを表します。
	ErrWrongStage = errors.New("operation is not available at the current stage")
)

// StageError は工程の境界で利用者向けメッセージに変換された失敗です。
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return e.Message
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AnimationError は動画生成の失敗を、失敗したページの番号（1 始まり）とともに表します。
type AnimationError struct {
	PageNumber int
	Message    string
	Err        error
}

func (e *AnimationError) Error() string {
	return e.Message
}

func (e *AnimationError) Unwrap() error {
	return e.Err
}

func wrongStage(op string, want, got Stage) error {
	return fmt.Errorf("%w: %s は %s でのみ実行できます (現在: %s)", ErrWrongStage, op, want, got)
}
