package unifw

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// 'unifw log' shows the per-platform build logs the orchestrator writes
// next to the build state. During a build the master and slave logs update
// live; the viewer tails both and lets the user flip between platforms.

type logInfo struct {
	path     string
	platform string
	content  string
}

type logViewer struct {
	app    *tview.Application
	header *tview.TextView
	view   *tview.TextView
	footer *tview.TextView

	logDir    string
	logs      []logInfo
	activeIdx int
	follow    bool
	updates   chan []logInfo
}

// RunLogViewer opens the TUI over the logs in logDir. It returns when the
// user quits, or an error when no logs exist yet.
func RunLogViewer(logDir string) error {
	logs := readBuildLogs(logDir)
	if len(logs) == 0 {
		return fmt.Errorf("no unifw build logs under %s", logDir)
	}

	v := &logViewer{
		app:     tview.NewApplication(),
		logDir:  logDir,
		logs:    logs,
		follow:  true,
		updates: make(chan []logInfo, 10),
	}

	v.header = tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	v.header.SetBorder(true)
	v.header.SetTitle("unifw Build Log Viewer")

	v.view = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetScrollable(true).
		SetChangedFunc(func() { v.app.Draw() })
	v.view.SetBorder(true)

	v.footer = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	v.footer.SetBorder(true)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.header, 3, 0, false).
		AddItem(v.view, 0, 1, true).
		AddItem(v.footer, 3, 0, false)

	flex.SetInputCapture(v.handleKey)

	// Poll the log files; builds append while we're open.
	go func() {
		ticker := time.NewTicker(400 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			select {
			case v.updates <- readBuildLogs(logDir):
			default:
			}
		}
	}()

	go func() {
		for logs := range v.updates {
			var current string
			if v.activeIdx < len(v.logs) {
				current = v.logs[v.activeIdx].path
			}
			v.logs = logs
			for i, log := range v.logs {
				if log.path == current {
					v.activeIdx = i
					break
				}
			}
			if v.activeIdx >= len(v.logs) && len(v.logs) > 0 {
				v.activeIdx = len(v.logs) - 1
			}
			v.app.QueueUpdateDraw(v.redraw)
		}
	}()

	v.app.SetRoot(flex, true).SetFocus(v.view)
	v.redraw()
	return v.app.Run()
}

func (v *logViewer) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlQ, tcell.KeyEsc:
		v.app.Stop()
		return nil
	case tcell.KeyLeft:
		v.switchLog(-1)
		return nil
	case tcell.KeyRight:
		v.switchLog(1)
		return nil
	case tcell.KeyHome:
		v.follow = false
		v.view.ScrollToBeginning()
		return nil
	case tcell.KeyEnd:
		v.follow = true
		v.view.ScrollToEnd()
		return nil
	case tcell.KeyUp:
		v.follow = false
		row, _ := v.view.GetScrollOffset()
		if row > 0 {
			v.view.ScrollTo(row-1, 0)
		}
		return nil
	case tcell.KeyDown:
		row, _ := v.view.GetScrollOffset()
		v.view.ScrollTo(row+1, 0)
		return nil
	case tcell.KeyPgUp:
		v.follow = false
		row, _ := v.view.GetScrollOffset()
		if row > 10 {
			v.view.ScrollTo(row-10, 0)
		} else {
			v.view.ScrollToBeginning()
		}
		return nil
	case tcell.KeyPgDn:
		row, _ := v.view.GetScrollOffset()
		v.view.ScrollTo(row+10, 0)
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			v.app.Stop()
			return nil
		case 'h':
			v.switchLog(-1)
			return nil
		case 'l':
			v.switchLog(1)
			return nil
		}
	}
	return event
}

func (v *logViewer) switchLog(delta int) {
	if len(v.logs) == 0 {
		return
	}
	v.activeIdx = (v.activeIdx + delta + len(v.logs)) % len(v.logs)
	v.follow = true
	v.redraw()
}

func (v *logViewer) redraw() {
	var tabs []string
	for i, log := range v.logs {
		if i == v.activeIdx {
			tabs = append(tabs, "[black:yellow] "+log.platform+" [-:-]")
		} else {
			tabs = append(tabs, " "+log.platform+" ")
		}
	}
	v.header.SetText(strings.Join(tabs, " "))

	if v.activeIdx < len(v.logs) {
		active := v.logs[v.activeIdx]
		v.view.SetText(tview.Escape(active.content))
		v.view.SetTitle(active.path)
		if v.follow {
			v.view.ScrollToEnd()
		}
	}
	v.footer.SetText("←/→ switch platform  ↑/↓ scroll  Home/End jump  q quit")
}

// readBuildLogs loads every per-platform log in the directory.
func readBuildLogs(logDir string) []logInfo {
	matches, err := filepath.Glob(filepath.Join(logDir, "unifw-*.log"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	var logs []logInfo
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		platform := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "unifw-"), ".log")
		logs = append(logs, logInfo{path: path, platform: platform, content: string(data)})
	}
	return logs
}
