// Package progress は、バッチ処理の小工程を単調増加する百分率と状況メッセージに変換します。
package progress

import "sync"

// Phase は1工程の中のどの時点かを表します。
type Phase int

const (
	// Starting は工程の開始時点で、その工程の区間の半分まで進んだものとして扱います。
	Starting Phase = iota
	// Complete は工程の完了時点です。
	Complete
)

// Update は観測者に渡す進捗の値です。
type Update struct {
	Percent float64
	Status  string
}

// Func は進捗の通知先です。
type Func func(Update)

// Report は stepIndex（0 始まり）、totalSteps、phase、label から進捗を計算する純粋関数です。
// Starting は (i+0.5)/n*100、Complete は (i+1)/n*100 を返し、結果は [0,100] に収めます。
func Report(stepIndex, totalSteps int, phase Phase, label string) Update {
	if totalSteps <= 0 {
		return Update{Percent: 0, Status: label}
	}
	pos := float64(stepIndex) + 0.5
	if phase == Complete {
		pos = float64(stepIndex) + 1
	}
	return Update{Percent: clamp(pos / float64(totalSteps) * 100), Status: label}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Tracker は直近の進捗を保持し、百分率が減らないようにして通知します。
type Tracker struct {
	mu      sync.Mutex
	current Update
	sink    Func
}

// NewTracker は通知先 sink を持つ Tracker を生成します。sink は nil でも構いません。
func NewTracker(sink Func) *Tracker {
	return &Tracker{sink: sink}
}

// Push は u を記録して通知します。u.Percent が直前より小さい場合は直前の値を維持します。
func (t *Tracker) Push(u Update) Update {
	t.mu.Lock()
	if u.Percent < t.current.Percent {
		u.Percent = t.current.Percent
	}
	u.Percent = clamp(u.Percent)
	t.current = u
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(u)
	}
	return u
}

// Status は百分率を変えずに状況メッセージだけを更新します。
func (t *Tracker) Status(label string) Update {
	t.mu.Lock()
	p := t.current.Percent
	t.mu.Unlock()
	return t.Push(Update{Percent: p, Status: label})
}

// Reset は新しいバッチのために進捗を 0 に戻します。
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.current = Update{}
	t.mu.Unlock()
}

// Current は直近の進捗を返します。
func (t *Tracker) Current() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
