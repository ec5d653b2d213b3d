package wizard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"
	"github.com/shouni/go-comic-movie-kit/pkg/workflow"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// ApprovalMessage は自動承認で共作者に送る承認の一言なのだ。
const ApprovalMessage = "This looks wonderful. I approve the story!"

// ErrQuit は利用者が途中でやめたことを表すのだ。
var ErrQuit = errors.New("wizard: quit by user")

// Options は Wizard の動作を決めるのだ。
type Options struct {
	// AutoApprove なら問い合わせをせずにすべて承認して進むのだ。
	AutoApprove bool
	// Animate は動画化するページの 0 始まりの位置なのだ。空なら対話か既定の選び方になるのだ。
	Animate []int
	// MaxAttempts は失敗した工程をやり直す上限なのだ。0 以下なら 3 回なのだ。
	MaxAttempts int
}

const defaultMaxAttempts = 3

// Wizard は Controller の6工程を端末から順に進めるのだ。
type Wizard struct {
	in   *bufio.Reader
	out  io.Writer
	opts Options

	mu         sync.Mutex
	bar        *progressbar.ProgressBar
	lastStatus string
}

// New は Wizard を生成するのだ。out が端末ならプログレスバーを出すのだ。
func New(in io.Reader, out io.Writer, opts Options) *Wizard {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	w := &Wizard{in: bufio.NewReader(in), out: out, opts: opts}
	if IsTerminal(out) {
		w.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}
	return w
}

// IsTerminal は w が端末につながっているかを返すのだ。
func IsTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Observe は Controller の OnChange に渡すのだ。進捗と状況をバーか行で表示するのだ。
func (w *Wizard) Observe(s workflow.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.bar != nil {
		w.bar.Describe(s.Status)
		_ = w.bar.Set(int(s.Progress))
		return
	}
	if s.Status == "" || s.Status == w.lastStatus {
		return
	}
	w.lastStatus = s.Status
	fmt.Fprintf(w.out, "  ... %s\n", s.Status)
}

// Run はアイデアから完成まで全工程を進めるのだ。
func (w *Wizard) Run(ctx context.Context, ctrl *workflow.Controller, idea domain.Idea) (workflow.Snapshot, error) {
	steps := []struct {
		stage workflow.Stage
		run   func(context.Context, *workflow.Controller) error
	}{
		{workflow.StageSpark, func(ctx context.Context, c *workflow.Controller) error { return w.spark(ctx, c, idea) }},
		{workflow.StageCharacterLab, w.characterLab},
		{workflow.StageStoryboard, w.storyboard},
		{workflow.StageCreationEngine, w.creation},
		{workflow.StageAnimate, w.animation},
		{workflow.StagePremiere, w.premiere},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return ctrl.Snapshot(), err
		}
		w.heading(step.stage)
		if err := step.run(ctx, ctrl); err != nil {
			return ctrl.Snapshot(), err
		}
	}
	return ctrl.Snapshot(), nil
}

func (w *Wizard) heading(s workflow.Stage) {
	fmt.Fprintf(w.out, "\n== %d. %s ==\n", int(s), s)
}

// retry は op が失敗したとき利用者にやり直すかを尋ね、上限まで繰り返すのだ。
func (w *Wizard) retry(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		fmt.Fprintf(w.out, "! %s\n", err)
		slog.Warn("工程が失敗したのだ", "attempt", attempt, "error", err)
		if attempt == w.opts.MaxAttempts || errors.Is(err, workflow.ErrWrongStage) {
			break
		}
		ok, askErr := w.confirm("Try again?")
		if askErr != nil {
			return askErr
		}
		if !ok {
			return ErrQuit
		}
	}
	return err
}

// 1. Spark
func (w *Wizard) spark(ctx context.Context, ctrl *workflow.Controller, idea domain.Idea) error {
	fmt.Fprintf(w.out, "Your idea: %s\n", ideaSummary(idea))
	return w.retry(ctx, func(ctx context.Context) error { return ctrl.SubmitIdea(ctx, idea) })
}

// 2. Character Lab
func (w *Wizard) characterLab(ctx context.Context, ctrl *workflow.Controller) error {
	for {
		snap := ctrl.Snapshot()
		if snap.Project.Character != nil {
			fmt.Fprintf(w.out, "Meet your character:\n%s\n", snap.Project.Character.Description)
		}

		choice, err := w.choose("Approve this character? [y]es / [r]etry / [q]uit", "y")
		if err != nil {
			return err
		}
		switch choice {
		case "y":
			if err := ctrl.ApproveCharacter(ctx); err != nil {
				return err
			}
			return nil
		case "r":
			if err := w.retry(ctx, ctrl.RetryCharacter); err != nil {
				return err
			}
		default:
			return ErrQuit
		}
	}
}

// 3. Storyboard
func (w *Wizard) storyboard(ctx context.Context, ctrl *workflow.Controller) error {
	if !ctrl.Snapshot().ChatOpen {
		if err := w.retry(ctx, ctrl.OpenStoryboard); err != nil {
			return err
		}
	}
	printed := w.printMessages(ctrl.Snapshot().Messages, 0)

	for attempt := 0; ; attempt++ {
		text := ApprovalMessage
		if !w.opts.AutoApprove {
			line, err := w.prompt("You (say \"I approve the story\" when ready)")
			if err != nil {
				return err
			}
			text = line
		} else if attempt >= w.opts.MaxAttempts {
			return fmt.Errorf("物語の承認が %d 回続けて失敗したのだ", attempt)
		}

		_, approved, err := ctrl.SendMessage(ctx, text)
		printed = w.printMessages(ctrl.Snapshot().Messages, printed)
		if err != nil {
			fmt.Fprintf(w.out, "! %s\n", err)
			if errors.Is(err, workflow.ErrWrongStage) {
				return err
			}
			continue
		}
		if approved {
			return nil
		}
	}
}

func (w *Wizard) printMessages(msgs []domain.ChatMessage, from int) int {
	for _, m := range msgs[from:] {
		who := "Co-writer"
		if m.Role == domain.RoleUser {
			who = "You"
		}
		fmt.Fprintf(w.out, "%s: %s\n", who, m.Text)
	}
	return len(msgs)
}

// 4. Creation
func (w *Wizard) creation(ctx context.Context, ctrl *workflow.Controller) error {
	if err := w.retry(ctx, ctrl.CreatePages); err != nil {
		return err
	}
	w.finishBar()
	fmt.Fprintln(w.out, RenderPageTable(ctrl.Snapshot().Project.Pages))
	return nil
}

// 5. Animation
func (w *Wizard) animation(ctx context.Context, ctrl *workflow.Controller) error {
	return w.retry(ctx, func(ctx context.Context) error {
		selection, err := w.selectPages(ctrl.Snapshot().Project.Pages)
		if err != nil {
			return err
		}
		if err := ctrl.Animate(ctx, selection); err != nil {
			return err
		}
		w.finishBar()
		return nil
	})
}

func (w *Wizard) selectPages(pages domain.Pages) ([]int, error) {
	if len(w.opts.Animate) > 0 {
		return w.opts.Animate, nil
	}
	if w.opts.AutoApprove {
		return DefaultSelection(len(pages)), nil
	}
	line, err := w.prompt(fmt.Sprintf("Pick %d pages to animate (e.g. 1 5 9 13)", domain.AnimationSelectionSize))
	if err != nil {
		return nil, err
	}
	return ParseSelection(line)
}

// 6. Premiere
func (w *Wizard) premiere(ctx context.Context, ctrl *workflow.Controller) error {
	if err := ctrl.Finalize(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w.out, "Your comic book movie is ready!")
	return nil
}

func (w *Wizard) finishBar() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bar != nil {
		_ = w.bar.Finish()
		w.bar.Reset()
	}
}

// confirm は y/n を尋ねるのだ。自動承認なら常に y なのだ。
func (w *Wizard) confirm(question string) (bool, error) {
	choice, err := w.choose(question+" [y/N]", "y")
	if err != nil {
		return false, err
	}
	return choice == "y", nil
}

// choose は1文字の選択肢を尋ねるのだ。自動承認なら auto を返すのだ。
func (w *Wizard) choose(question, auto string) (string, error) {
	if w.opts.AutoApprove {
		return auto, nil
	}
	line, err := w.prompt(question)
	if err != nil {
		return "", err
	}
	line = strings.ToLower(line)
	if line == "" {
		return "n", nil
	}
	return line[:1], nil
}

func (w *Wizard) prompt(question string) (string, error) {
	fmt.Fprintf(w.out, "%s > ", question)
	line, err := w.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrQuit
		}
		return "", fmt.Errorf("入力の読み込みに失敗したのだ: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// DefaultSelection は各章の最初のページを選ぶのだ。
func DefaultSelection(pageCount int) []int {
	selection := make([]int, 0, domain.AnimationSelectionSize)
	for i := 0; i < pageCount && len(selection) < domain.AnimationSelectionSize; i += domain.PagesPerChapter {
		selection = append(selection, i)
	}
	return selection
}

// ParseSelection は "1 5, 9 13" のような 1 始まりのページ番号を 0 始まりの位置に変換するのだ。
func ParseSelection(line string) ([]int, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("ページ番号が不正なのだ %q: %w", f, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("ページ番号は 1 以上なのだ: %d", n)
		}
		out = append(out, n-1)
	}
	return out, nil
}

func ideaSummary(idea domain.Idea) string {
	switch idea.Type {
	case domain.IdeaImage:
		if idea.Content == "" {
			return "(an uploaded image)"
		}
		return idea.Content + " (with an image)"
	default:
		return idea.Content
	}
}
