package wizard

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shouni/go-comic-movie-kit/pkg/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const maxCellRunes = 60

// RenderPageTable はページ一覧を罫線付きの表にするのだ。
func RenderPageTable(pages domain.Pages) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Page", "Chapter", "Text", "SFX", "Image", "Video"})

	for _, p := range pages {
		tw.AppendRow(table.Row{
			p.PageNumber,
			p.Chapter,
			truncate(p.Text),
			truncate(p.SFX),
			mark(!p.Image.IsZero()),
			mark(!p.Video.IsZero()),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.SetCaption("%s pages", strconv.Itoa(len(pages)))
	return tw.Render()
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxCellRunes-3]) + "..."
}
