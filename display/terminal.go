package livedemo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	Lo "github.com/maroda/livedemo/obvy"
	Ls "github.com/maroda/livedemo/server"
	Lt "github.com/maroda/livedemo/types"
)

const (
	barWidth  = 6
	chartSpan = 10 * time.Second // visible history on the strip chart
	overlayW  = 34
	overlayH  = 5
)

var (
	defStyle    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	valueStyle  = defStyle.Foreground(tcell.ColorDeepSkyBlue)
	labelStyle  = defStyle.Foreground(tcell.ColorOrange)
	predStyle   = defStyle.Foreground(tcell.ColorFuchsia)
	helpStyle   = defStyle.Foreground(tcell.ColorGray)
	overlayBase = tcell.StyleDefault.Background(tcell.ColorDarkRed).Foreground(tcell.ColorWhite)
)

// Acker sends an operator acknowledgement upstream
type Acker interface {
	Ack() error
}

// View is the terminal host: a countdown bar bound to a simulated player
// and a strip chart of the live stream. Everything on it runs on Loop.
type View struct {
	Screen    tcell.Screen
	Loop      *Ls.Loop
	Countdown *Ls.Countdown
	Series    *Ls.SeriesSet
	Plot      *Ls.Plot
	Player    *Player
	Upstream  Acker
	Stats     *Lo.StatsInternal // optional, shared with the server in both mode
	ShowPlot  bool

	quit context.CancelFunc
}

// NewView wires the countdown to the player the way the web host does:
// playing restarts the countdown, pausing or ending flushes it,
// and reaching zero pauses the player.
func NewView(screen tcell.Screen, c *Ls.Config) *View {
	v := &View{
		Screen:   screen,
		Loop:     Ls.NewLoop(c.FrameDuration()),
		Series:   Ls.NewSeriesSet(c.SeriesLen),
		ShowPlot: true,
	}
	v.Plot = Ls.NewPlotOnSet(v.Series)

	v.Player = NewPlayer(c.VideoID, DefaultVideoLength, v.onPlayerState)
	v.Countdown = Ls.NewCountdown(
		c.CountdownDuration(),
		v.Loop,
		nil,
		func() {
			slog.Info("Countdown reached zero, pausing player")
			if v.Stats != nil {
				v.Stats.RecCountdownFire()
			}
			v.Player.Pause()
		},
	)

	v.Loop.EachFrame(v.frame)
	return v
}

func (v *View) onPlayerState(st PlayerState) {
	slog.Debug("Player state", slog.String("state", st.String()))
	switch st {
	case Playing:
		v.Countdown.Reset()
		v.Countdown.Start()
	case Paused, Ended:
		v.Countdown.Pause()
	}
}

// HandleUpdate plots one record, a prediction restarts the countdown
// and resumes a paused player
func (v *View) HandleUpdate(u *Lt.Update) {
	v.Plot.HandleUpdate(u)

	if Ls.KindOf(u) == Ls.KindPrediction {
		v.Countdown.Reset()
		v.Countdown.Start()
		if v.Player.State() == Paused {
			v.Player.Play()
		}
	}
}

// HandleKey returns false when the host should quit
func (v *View) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyCtrlL:
		v.Screen.Sync()
		return true
	}

	switch ev.Rune() {
	case 'p', 'P':
		v.ShowPlot = !v.ShowPlot
	case ' ':
		if v.Upstream == nil {
			break
		}
		if err := v.Upstream.Ack(); err != nil {
			slog.Error("Failed to send acknowledgement", slog.Any("Error", err))
		}
	case 'v', 'V':
		v.Player.Toggle()
	}
	return true
}

func (v *View) frame() {
	v.Player.Advance()
	v.UpdateScreen()
}

func (v *View) UpdateScreen() {
	v.Screen.Clear()
	v.Draw()
	v.Screen.Show()
}

// Draw lays out the header, chart, countdown bar, overlay, and help line
func (v *View) Draw() {
	width, height := v.Screen.Size()
	if width < barWidth+2 || height < 4 {
		return
	}

	pr := v.Countdown.Presentation()
	WriteText(v.Screen, 0, 0, defStyle, fmt.Sprintf("video %s  %s %s/%s  countdown %4.1fs",
		v.Player.VideoID,
		v.Player.State(),
		v.Player.Position().Truncate(time.Second),
		v.Player.Length,
		v.Countdown.Remaining().Seconds()))
	WriteText(v.Screen, 0, height-1, helpStyle, "p plot  space ack  v play/pause  esc quit")

	top, bottom := 1, height-1
	v.DrawCountdown(width-barWidth, top, width, bottom, pr)
	if v.ShowPlot {
		v.DrawChart(0, top, width-barWidth-1, bottom)
	}
	if pr.OverlayOpacity > 0 {
		v.DrawOverlay(width-barWidth-1, height)
	}
}

// DrawCountdown fills the bar from the bottom by the remaining fraction
func (v *View) DrawCountdown(x1, y1, x2, y2 int, pr Ls.Presentation) {
	rows := y2 - y1
	filled := int(pr.Fraction*float64(rows) + 0.5)
	style := tcell.StyleDefault.Background(tcell.GetColor(pr.Color))
	WriteBar(v.Screen, x1, y2-filled, x2, y2, style)
}

// DrawOverlay dims the player area while the countdown is in the low band
func (v *View) DrawOverlay(width, height int) {
	x := (width - overlayW) / 2
	y := (height - overlayH) / 2
	if x < 0 || y < 0 {
		return
	}
	WriteBar(v.Screen, x, y, x+overlayW, y+overlayH, overlayBase)
	WriteText(v.Screen, x+2, y+2, overlayBase.Bold(true), "acknowledge the prediction")
}

// DrawChart plots the last chartSpan of all three series.
// Values are scaled to the visible min/max, pulses mark the top row.
func (v *View) DrawChart(x1, y1, x2, y2 int) {
	cols := x2 - x1
	rows := y2 - y1
	if cols <= 0 || rows <= 1 {
		return
	}

	end := v.chartEnd()
	start := end - chartSpan.Milliseconds()
	col := func(t int64) int {
		return x1 + int(float64(t-start)/float64(chartSpan.Milliseconds())*float64(cols-1))
	}

	values := v.Series.Values.Since(start)
	if len(values) > 0 {
		lo, hi := values[0].Value, values[0].Value
		for _, p := range values {
			lo = min(lo, p.Value)
			hi = max(hi, p.Value)
		}
		for _, p := range values {
			row := y2 - 1
			if hi > lo {
				row = y2 - 1 - int((p.Value-lo)/(hi-lo)*float64(rows-2))
			}
			v.Screen.SetContent(col(p.Time), row, '•', nil, valueStyle)
		}
	}

	drawPulses := func(s *Ls.Series, r rune, style tcell.Style) {
		for _, p := range s.Since(start) {
			if p.Value > 0 {
				v.Screen.SetContent(col(p.Time), y1, r, nil, style)
			}
		}
	}
	drawPulses(v.Series.Labels, 'L', labelStyle)
	drawPulses(v.Series.Preds, 'P', predStyle)
}

// chartEnd follows the stream's own clock so replays scroll correctly
func (v *View) chartEnd() int64 {
	end := int64(0)
	for _, s := range []*Ls.Series{v.Series.Values, v.Series.Labels, v.Series.Preds} {
		if p, ok := s.Last(); ok && p.Time > end {
			end = p.Time
		}
	}
	if end == 0 {
		end = time.Now().UnixMilli()
	}
	return end
}

// HandleEvent runs on the loop, false means quit
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.Screen.Sync()
	case *tcell.EventKey:
		return v.HandleKey(ev)
	}
	return true
}

// Run drives the host until ESC or ctx is done.
// The player starts right away, as the web host does once its video is ready.
func (v *View) Run(ctx context.Context, up *Upstream) error {
	ctx, v.quit = context.WithCancel(ctx)
	defer v.quit()

	if up != nil {
		v.Upstream = up
		go func() {
			err := up.Listen(ctx, func(u *Lt.Update) {
				v.Loop.Post(func() { v.HandleUpdate(u) })
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Upstream closed", slog.Any("Error", err))
			}
		}()
	}

	go func() {
		for {
			ev := v.Screen.PollEvent()
			if ev == nil {
				return // screen finalized
			}
			v.Loop.Post(func() {
				if !v.HandleEvent(ev) {
					v.quit()
				}
			})
		}
	}()

	v.Loop.Post(func() {
		v.Player.SeekTo(0)
		v.Player.Play()
	})

	slog.Info("Starting terminal host")
	err := v.Loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StartView dials the server and runs the terminal host on the TTY
func StartView(ctx context.Context, c *Ls.Config, wsURL string, stats *Lo.StatsInternal) error {
	if err := c.ValidateView(); err != nil {
		return err
	}

	up, err := DialUpstream(ctx, wsURL)
	if err != nil {
		return err
	}
	defer up.Close()

	screen, err := GetTTY()
	if err != nil {
		slog.Error("Could not start terminal host", slog.Any("Error", err))
		return err
	}
	screen.SetStyle(defStyle)

	quit := func() {
		// catch panics, clean up the terminal, and re-raise
		maybePanic := recover()
		screen.Fini()
		if maybePanic != nil {
			panic(maybePanic)
		}
	}
	defer quit()

	view := NewView(screen, c)
	view.Stats = stats
	return view.Run(ctx, up)
}
