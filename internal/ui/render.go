package ui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

const cellWidth = 9

func (r *Root) render() string {
	w, h := r.cols, r.rows
	r.layout = DetermineLayoutMode(w, h)
	if r.layout == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			"Minimum: 80x24",
			"Resize the terminal to continue.",
		}
		panel := r.drawPanel("Resize Required", msg, min(48, max(4, w)), min(8, max(3, h)))
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	bodyH := max(3, h-2)
	var body string
	switch r.screen {
	case ScreenSetup:
		body = r.renderSetup(w, bodyH)
	case ScreenHub:
		body = r.renderHub(w, bodyH)
	case ScreenGame:
		body = r.renderGame(w, bodyH)
	case ScreenComplete:
		body = r.renderComplete(w, bodyH)
	case ScreenFinal:
		body = r.renderFinal(w, bodyH)
	case ScreenPrizes:
		body = r.renderPrizes(w, bodyH)
	default:
		body = r.renderWelcome(w, bodyH)
	}
	return r.headerText() + "\n" + body + "\n" + r.statusText()
}

func (r *Root) headerText() string {
	title := firstNonEmpty(r.hub.Title, r.welcome.Title, "Picture Mission")
	right := ""
	switch r.screen {
	case ScreenHub, ScreenGame, ScreenComplete, ScreenPrizes:
		right = fmt.Sprintf("%d pts", r.hub.TotalPoints)
		if r.screen == ScreenComplete {
			right = fmt.Sprintf("%d pts", r.complete.TotalPoints)
		}
	}
	text := title
	if right != "" {
		gap := max(1, r.cols-2-ansi.StringWidth(title)-ansi.StringWidth(right))
		text = title + strings.Repeat(" ", gap) + right
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(trimForWidth(text, max(1, r.cols-2)))
}

func (r *Root) statusText() string {
	keys := r.help.View(r.screenBindings())
	if r.loading {
		keys += " | " + r.theme.Accent.Render(strings.TrimSpace(r.spin.View())+" Loading...")
	}
	if r.statusFlash != "" {
		keys += " | " + r.statusFlash
	}
	keys = trimForWidth(keys, max(1, r.cols-1))
	return r.theme.Status.Width(max(1, r.cols)).Render(keys)
}

func binding(keys, label string) key.Binding {
	parts := strings.Split(keys, ",")
	return key.NewBinding(key.WithKeys(parts...), key.WithHelp(parts[0], label))
}

func (r *Root) screenBindings() bindings {
	quit := binding("ctrl+q", "quit")
	switch r.screen {
	case ScreenSetup:
		return bindings{binding("enter", "use photo"), binding("ctrl+u", "clear"), binding("esc", "back"), quit}
	case ScreenHub:
		out := bindings{binding("tab", "switch panel")}
		if r.focus == focusMissions {
			out = append(out, binding("↑/↓", "choose"), binding("enter", "play"))
		} else {
			out = append(out, binding("←/→", "piece"), binding("1-9", "slot"), binding("enter", "place"))
		}
		if r.hub.FinalReady {
			out = append(out, binding("f", "reveal"))
			if r.hub.PrizesOn {
				out = append(out, binding("p", "prizes"))
			}
		}
		return append(out, binding("ctrl+r", "start over"), quit)
	case ScreenGame:
		return bindings{binding("esc", "back to hub"), quit}
	case ScreenComplete:
		return bindings{binding("enter", "continue"), quit}
	case ScreenFinal:
		if r.final.PrizesOn {
			return bindings{binding("enter", "prize vault"), binding("esc", "hub"), quit}
		}
		return bindings{binding("esc", "hub"), quit}
	case ScreenPrizes:
		return bindings{binding("↑/↓", "choose"), binding("space", "pick"), binding("c", "confirm"), binding("esc", "back"), quit}
	default:
		return bindings{binding("enter", "start"), binding("esc", "quit")}
	}
}

func (r *Root) renderWelcome(w, h int) string {
	s := r.welcome
	name := firstNonEmpty(s.ChildName, "there")
	lines := []string{
		"",
		r.theme.Accent.Render(fmt.Sprintf("Hi %s!", name)),
		"",
		fmt.Sprintf("A secret picture is hidden behind %d puzzle pieces.", max(1, s.TotalPieces)),
		"Win a mission to earn a piece, then put it in the right spot.",
		"Finish them all to see the whole picture.",
		"",
	}
	if s.SetupComplete {
		lines = append(lines, "Press Enter to keep going.")
	} else {
		lines = append(lines, fmt.Sprintf("Press Enter so %s can pick the photo.", firstNonEmpty(s.ParentName, "a grown-up")))
	}
	panel := r.drawPanel("Welcome", lines, min(72, w), min(14, h))
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) renderSetup(w, h int) string {
	s := r.setup
	input := r.photoInput
	lines := []string{
		fmt.Sprintf("%s, choose the photo to hide behind the puzzle.", firstNonEmpty(s.ParentName, "Grown-up")),
		"Type or paste a path to a PNG, JPEG or GIF file and press Enter.",
		"",
		"Photo: " + r.theme.Accent.Render(input+"_"),
		"",
	}
	if s.Detail != "" {
		lines = append(lines, r.theme.Pass.Render(s.Detail))
	}
	if s.Error != "" {
		lines = append(lines, r.theme.Fail.Render(s.Error))
	}
	panel := r.drawPanel("Setup", lines, min(90, w), min(12, h))
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) renderHub(w, h int) string {
	puzzleW := 3*cellWidth + 8
	if g := r.hub.GridSize; g > 0 {
		puzzleW = g*cellWidth + g + 5
	}
	puzzleW = min(max(puzzleW, 36), w/2)
	missionW := w - puzzleW

	left := r.drawPanel(r.panelTitle("Puzzle", r.focus == focusPuzzle), r.puzzleLines(puzzleW-2), puzzleW, h)
	right := r.drawPanel(r.panelTitle("Missions", r.focus == focusMissions), r.missionLines(missionW-2), missionW, h)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (r *Root) panelTitle(title string, focused bool) string {
	if focused {
		return "» " + title
	}
	return title
}

func (r *Root) puzzleLines(width int) []string {
	s := r.hub
	cursor := -1
	if r.focus == focusPuzzle {
		cursor = r.slotIndex
	}
	lines := r.boardLines(s.Slots, s.GridSize, cursor, -1)

	bank := "none yet"
	if len(s.Bank) > 0 {
		parts := make([]string, len(s.Bank))
		for i, id := range s.Bank {
			label := fmt.Sprintf(" %d ", id)
			if i == r.bankIndex && r.focus == focusPuzzle {
				label = r.theme.Cursor.Render(fmt.Sprintf("[%d]", id))
			}
			parts[i] = label
		}
		bank = strings.Join(parts, " ")
	}
	placed := 0
	for _, p := range s.Slots {
		if p != 0 {
			placed++
		}
	}
	percent := 0.0
	if len(s.Slots) > 0 {
		percent = float64(placed) / float64(len(s.Slots))
	}
	bar := r.bar
	bar.SetWidth(max(8, width-14))
	lines = append(lines,
		"",
		"Pieces to place: "+bank,
		"",
		fmt.Sprintf("Placed %d/%d ", placed, len(s.Slots))+bar.ViewAs(percent),
	)
	if s.PhotoLabel != "" {
		lines = append(lines, r.theme.Muted.Render("Photo: "+trimForWidth(s.PhotoLabel, max(1, width-7))))
	}
	if s.FinalReady {
		lines = append(lines, "", r.theme.Pass.Render("Picture complete! Press f to see it."))
	}
	return lines
}

// boardLines draws the grid. reveal >= 0 switches to the final reveal, where
// the first reveal slots show as photo tiles.
func (r *Root) boardLines(slots []int, grid, cursor, reveal int) []string {
	if grid <= 0 {
		grid = 3
	}
	hz, vt, cross := "─", "│", "┼"
	fill := "▓"
	if r.ascii {
		hz, vt, cross, fill = "-", "|", "+", "#"
	}
	sep := cross + strings.Repeat(strings.Repeat(hz, cellWidth)+cross, grid)
	lines := []string{r.theme.Board.Render(sep)}
	for row := 0; row < grid; row++ {
		top := r.theme.Board.Render(vt)
		mid := r.theme.Board.Render(vt)
		for col := 0; col < grid; col++ {
			i := row*grid + col
			piece := 0
			if i < len(slots) {
				piece = slots[i]
			}
			var upper, label string
			switch {
			case reveal >= 0 && i < reveal:
				upper = r.theme.Piece.Render(strings.Repeat(fill, cellWidth))
				label = r.theme.Piece.Render(strings.Repeat(fill, cellWidth))
			case piece != 0:
				upper = r.theme.Piece.Render(centre(strings.Repeat(fill, 5), cellWidth))
				label = r.theme.Piece.Render(centre(fmt.Sprintf("%s %d %s", fill, piece, fill), cellWidth))
			default:
				upper = strings.Repeat(" ", cellWidth)
				label = r.theme.Muted.Render(centre(fmt.Sprintf("· %d ·", i+1), cellWidth))
			}
			if i == cursor {
				label = r.theme.Cursor.Render(centre(fmt.Sprintf(">%d<", i+1), cellWidth))
			}
			top += upper + r.theme.Board.Render(vt)
			mid += label + r.theme.Board.Render(vt)
		}
		lines = append(lines, top, mid, r.theme.Board.Render(sep))
	}
	return lines
}

func (r *Root) missionLines(width int) []string {
	s := r.hub
	lines := []string{fmt.Sprintf("Missions done %d/%d   Points %d", s.Completed, len(s.Missions), s.TotalPoints), ""}
	for i, m := range s.Missions {
		var mark string
		var style lipgloss.Style
		switch m.State {
		case "completed":
			mark, style = r.icon("✓", "v"), r.theme.Pass
		case "available":
			mark, style = r.icon("▶", ">"), r.theme.Accent
		default:
			mark, style = r.icon("🔒", "x"), r.theme.Muted
		}
		text := fmt.Sprintf("%s %d. %s %s", mark, m.ID, m.Icon, m.Name)
		if m.State == "completed" {
			text += fmt.Sprintf("  %d pts", m.Score)
		}
		if !m.Playable {
			text += "  (unavailable)"
		}
		text = trimForWidth(text, max(1, width-2))
		prefix := "  "
		if i == r.missionIndex && r.focus == focusMissions {
			prefix = "> "
		}
		lines = append(lines, prefix+style.Render(text))
		if r.layout == LayoutWide && m.State == "available" && m.Description != "" {
			lines = append(lines, "     "+r.theme.Muted.Render(trimForWidth(m.Description, max(1, width-6))))
		}
	}
	st := s.Stats
	lines = append(lines,
		"",
		r.theme.PanelTitle.Render("Stats"),
		fmt.Sprintf("Runs %d  Wins %d  Tries again %d  Left early %d", st.Runs, st.Completions, st.Failures, st.Abandons),
		fmt.Sprintf("Best score %d", st.BestScore),
	)
	if st.LastRun != "" {
		lines = append(lines, trimForWidth("Last: "+st.LastRun, max(1, width-1)))
	}
	return lines
}

func (r *Root) renderGame(w, h int) string {
	s := r.game
	f := s.Frame
	title := fmt.Sprintf("Mission %d: %s %s", s.MissionID, s.Icon, firstNonEmpty(f.Title, s.MissionName))
	status := r.theme.Accent.Render(f.Status)
	if f.Finished {
		if f.Success {
			status = r.theme.Pass.Render(f.Status)
		} else {
			status = r.theme.Fail.Render(f.Status)
		}
	}
	lines := []string{status, ""}
	lines = append(lines, f.Lines...)
	if f.Help != "" {
		lines = append(lines, "", r.theme.Muted.Render(f.Help))
	}
	panelH := min(h, len(lines)+4)
	panel := r.drawPanel(title, append([]string{""}, lines...), min(76, w), panelH)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) renderComplete(w, h int) string {
	s := r.complete
	panelW := min(80, w)
	lines := []string{
		"",
		r.theme.Pass.Render(fmt.Sprintf("You earned puzzle piece #%d!", s.PieceID)),
		fmt.Sprintf("%s scored %d points. Total: %d", firstNonEmpty(s.MissionName, "Mission"), s.Score, s.TotalPoints),
		"",
	}
	lines = append(lines, r.renderMarkdown(s.Message, panelW-4)...)
	lines = append(lines, "")
	if s.AllComplete {
		lines = append(lines, r.theme.Accent.Render("That was the last mission! Place every piece to see the picture."))
	} else {
		lines = append(lines, "Press Enter to place it on the puzzle.")
	}
	panel := r.drawPanel("Mission Complete", lines, panelW, min(h, len(lines)+2))
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) renderFinal(w, h int) string {
	s := r.final
	grid := max(1, s.GridSize)
	total := grid * grid
	shown := min(total, int(r.revealPos*float64(total)+0.0001))
	slots := make([]int, total)
	for i := range slots {
		slots[i] = i + 1
	}
	lines := []string{""}
	for _, l := range r.boardLines(slots, grid, -1, shown) {
		lines = append(lines, "  "+l)
	}
	if s.PhotoLabel != "" {
		lines = append(lines, "", r.theme.Muted.Render("Your picture: "+trimForWidth(s.PhotoLabel, 60)))
	}
	if shown >= total {
		lines = append(lines, "")
		lines = append(lines, r.renderMarkdown(s.Message, min(76, w)-4)...)
		if s.PrizesOn {
			lines = append(lines, "", r.theme.Accent.Render("Press Enter to open the prize vault!"))
		}
	}
	title := fmt.Sprintf("You did it, %s!", firstNonEmpty(s.ChildName, "champ"))
	panel := r.drawPanel(title, lines, min(80, w), h)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) renderPrizes(w, h int) string {
	s := r.prizes
	lines := []string{
		fmt.Sprintf("Points %d   Left to spend %d   Picks left %d of %d", s.Budget, s.Remaining, s.PicksLeft, s.MaxPicks),
		"",
	}
	for i, p := range s.Prizes {
		box := "[ ]"
		style := r.theme.PanelBody
		switch {
		case p.Selected:
			box = "[" + r.icon("✓", "x") + "]"
			style = r.theme.Pass
		case !p.Affordable:
			style = r.theme.Muted
		}
		prefix := "  "
		if i == r.prizeIndex {
			prefix = "> "
		}
		text := fmt.Sprintf("%s %s %s  %d pts", box, p.Icon, p.Name, p.Cost)
		lines = append(lines, prefix+style.Render(text))
	}
	lines = append(lines, "")
	switch {
	case s.Confirmed && s.Summary != "":
		lines = append(lines, r.theme.Pass.Render(s.Summary))
	case s.CanConfirm:
		lines = append(lines, "Press c to confirm your picks.")
	default:
		lines = append(lines, r.theme.Muted.Render("Pick at least one prize to confirm."))
	}
	panel := r.drawPanel("Prize Vault", lines, min(72, w), min(h, len(lines)+2))
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) renderOverlay() string {
	w := min(max(40, r.cols/2), r.cols)
	switch {
	case r.resetOpen:
		lines := []string{"Start over? The photo, missions and prizes will all be cleared.", ""}
		for i, label := range []string{"Cancel", "Start over"} {
			prefix := "  "
			if i == r.resetIndex {
				prefix = "> "
			}
			lines = append(lines, prefix+label)
		}
		return r.drawPanel("Confirm Reset", lines, w, len(lines)+2)
	case r.infoOpen:
		lines := strings.Split(strings.TrimSuffix(r.infoText, "\n"), "\n")
		lines = append(lines, "", "Enter/Esc: Close")
		return r.drawPanel(firstNonEmpty(r.infoTitle, "Info"), lines, w, len(lines)+2)
	}
	return ""
}

func (r *Root) renderMarkdown(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			return strings.Split(strings.Trim(out, "\n"), "\n")
		}
	}
	return wrapWords(text, max(10, width))
}

func (r *Root) icon(unicode, plain string) string {
	if r.ascii {
		return plain
	}
	return unicode
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h, v := "─", "│"
	tl, tr, bl, br := "┌", "┐", "└", "┘"
	if r.ascii {
		h, v = "-", "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := trimForWidth(" "+title+" ", innerW-1)
		top = tl + t + strings.Repeat(h, max(0, innerW-ansi.StringWidth(t))) + tr
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(padCell(line, innerW))+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

// padCell fits a possibly styled string to exactly width columns.
func padCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", max(0, width-ansi.StringWidth(s)))
}

func centre(s string, width int) string {
	gap := width - ansi.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return strings.Repeat(" ", gap/2) + s + strings.Repeat(" ", gap-gap/2)
}

func composeOverlay(base, overlay string, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	base = ansi.Strip(base)
	overlay = ansi.Strip(overlay)
	baseLines := strings.Split(base, "\n")
	for len(baseLines) < rows {
		baseLines = append(baseLines, "")
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	ow := 1
	for _, line := range overlayLines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	oh := min(len(overlayLines), rows)
	startRow := (rows - oh) / 2
	startCol := max(0, (cols-ow)/2)

	for i := 0; i < oh; i++ {
		row := startRow + i
		dst := []rune(baseLines[row])
		src := []rune(overlayLines[i])
		if len(src) > ow {
			src = src[:ow]
		}
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			dst[startCol+j] = ' '
		}
		for j := 0; j < len(src) && startCol+j < len(dst); j++ {
			dst[startCol+j] = src[j]
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

func padRune(s string, width int) string {
	if width <= 0 {
		return ""
	}
	rs := []rune(strings.ReplaceAll(s, "\t", "    "))
	if len(rs) > width {
		rs = rs[:width]
	}
	if len(rs) < width {
		rs = append(rs, []rune(strings.Repeat(" ", width-len(rs)))...)
	}
	return string(rs)
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	rs := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(rs) <= width {
		return string(rs)
	}
	if width == 1 {
		return "…"
	}
	return string(rs[:width-1]) + "…"
}

func wrapWords(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if line != "" && len([]rune(line))+1+len([]rune(word)) > width {
				out = append(out, line)
				line = word
				continue
			}
			if line == "" {
				line = word
			} else {
				line += " " + word
			}
		}
		out = append(out, line)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		return n - 1
	}
	if i >= n {
		return 0
	}
	return i
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	return min(i, n-1)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
