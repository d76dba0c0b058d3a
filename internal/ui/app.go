package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/greeter/internal/chain"
	"github.com/Mohsinsiddi/greeter/internal/greeter"
)

const spinInterval = 100 * time.Millisecond

// AppInfo is the static context shown around the greeting.
type AppInfo struct {
	Network   *chain.Network
	Contract  common.Address
	Account   string
	OpTimeout time.Duration // per fetch/set; 0 means none
}

type (
	stateChangedMsg struct{}
	spinTickMsg     struct{}
	opDoneMsg       struct {
		op  string
		err error
	}
)

// App is the Bubble Tea model over a greeter.Flow. The flow owns the
// state; the model only mirrors the latest snapshot.
type App struct {
	ctx     context.Context
	flow    *greeter.Flow
	info    AppInfo
	prompt  *ApprovalPrompt
	changed chan struct{}
	cancel  func()

	state    greeter.State
	pending  *approvalRequest
	frame    int
	spinning bool
	status   string
	err      string
	quitting bool
}

// NewApp builds the app model and subscribes it to flow. prompt may be nil
// when account access is approved elsewhere.
func NewApp(ctx context.Context, flow *greeter.Flow, info AppInfo, prompt *ApprovalPrompt) App {
	changed := make(chan struct{}, 1)
	cancel := flow.Subscribe(func(greeter.State) {
		select {
		case changed <- struct{}{}:
		default: // a refresh is already queued
		}
	})
	return App{
		ctx:     ctx,
		flow:    flow,
		info:    info,
		prompt:  prompt,
		changed: changed,
		cancel:  cancel,
		state:   flow.State(),
	}
}

// RunApp runs the interactive app until the user quits or ctx ends.
func RunApp(ctx context.Context, flow *greeter.Flow, info AppInfo, prompt *ApprovalPrompt) error {
	m := NewApp(ctx, flow, info, prompt)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close unsubscribes the app from its flow.
func (m App) Close() {
	m.cancel()
}

func (m App) Init() tea.Cmd {
	return tea.Batch(m.waitChange(), m.waitApproval())
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateChangedMsg:
		m.state = m.flow.State()
		cmds := []tea.Cmd{m.waitChange()}
		if m.state.Submitting && !m.spinning {
			m.spinning = true
			cmds = append(cmds, spinTick())
		}
		return m, tea.Batch(cmds...)

	case spinTickMsg:
		if !m.state.Submitting {
			m.spinning = false
			return m, nil
		}
		m.frame++
		return m, spinTick()

	case approvalRequest:
		req := msg
		m.pending = &req
		return m, nil

	case opDoneMsg:
		m.err = ""
		m.status = ""
		switch {
		case msg.err == nil && msg.op == "set":
			m.status = "Greeting updated"
		case msg.err == nil:
		case errors.Is(msg.err, greeter.ErrEmptyGreeting):
			m.status = "Type a greeting first"
		default:
			m.err = msg.err.Error()
		}
		return m, nil
	}
	return m, nil
}

func (m App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.answer(false)
		m.quitting = true
		return m, tea.Quit
	}

	if m.pending != nil {
		switch strings.ToLower(msg.String()) {
		case "y", "enter":
			m.answer(true)
			return m, m.waitApproval()
		case "n", "esc":
			m.answer(false)
			return m, m.waitApproval()
		}
		return m, nil
	}

	if !m.state.WalletAvailable {
		if msg.Type == tea.KeyEsc || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		return m, m.run("set", m.flow.SetGreeting)
	case tea.KeyCtrlF:
		// The spinner replaces the fetch trigger until the write settles.
		if m.state.Submitting || m.flow.State().Submitting {
			return m, nil
		}
		return m, m.run("fetch", m.flow.FetchGreeting)
	case tea.KeyBackspace:
		if r := []rune(m.state.Greeting); len(r) > 0 {
			m.flow.OnInputChange(string(r[:len(r)-1]))
		}
	case tea.KeyCtrlU:
		m.flow.OnInputChange("")
	case tea.KeySpace:
		m.flow.OnInputChange(m.state.Greeting + " ")
	case tea.KeyRunes:
		m.flow.OnInputChange(m.state.Greeting + string(msg.Runes))
	}
	// Mirror immediately so fast typing is not lost between refreshes.
	m.state = m.flow.State()
	return m, nil
}

func (m *App) answer(ok bool) {
	if m.pending == nil {
		return
	}
	m.pending.reply <- ok
	m.pending = nil
}

func (m App) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx, timeout := m.ctx, m.info.OpTimeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m App) waitChange() tea.Cmd {
	changed, done := m.changed, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changed:
			return stateChangedMsg{}
		case <-done:
			return nil
		}
	}
}

func (m App) waitApproval() tea.Cmd {
	if m.prompt == nil {
		return nil
	}
	requests, done := m.prompt.requests, m.ctx.Done()
	return func() tea.Msg {
		select {
		case req := <-requests:
			return req
		case <-done:
			return nil
		}
	}
}

func spinTick() tea.Cmd {
	return tea.Tick(spinInterval, func(time.Time) tea.Msg { return spinTickMsg{} })
}

func (m App) View() string {
	if m.quitting {
		return ""
	}
	if !m.state.WalletAvailable {
		return "\n  " + Warn("Wallet not available! Add a signing wallet with `greeter wallet add`") +
			"\n\n  " + Meta("[q] quit") + "\n"
	}

	var sb strings.Builder
	sb.WriteString("\n" + StyleTitle.Render("  Greeter") + "\n")
	sb.WriteString(m.header())

	sb.WriteString(StyleInput.Render(m.state.Greeting+StyleSelected.Render(" ")) + "\n")
	sb.WriteString("  " + Meta("[enter] Set Greeting   [ctrl+u] clear   [esc] quit") + "\n\n")

	if m.state.Submitting {
		sb.WriteString("  " + SpinnerFrame(m.frame) + "  " + Meta("Waiting for the transaction to be mined…") + "\n")
	} else {
		sb.WriteString("  " + Meta("[ctrl+f] Fetch Greeting") + "\n")
		sb.WriteString("  Value from Contract: " + Val(m.state.Greeting) + "\n")
	}

	if m.state.TxHash != (common.Hash{}) {
		hash := m.state.TxHash.Hex()
		line := "  " + Meta("Last tx: ") + Addr(TruncateAddr(hash))
		if url := m.info.Network.TxURL(hash); url != "" {
			line += "  " + Meta(url)
		}
		sb.WriteString(line + "\n")
	}
	if m.status != "" {
		sb.WriteString("\n  " + Success(m.status) + "\n")
	}
	if m.err != "" {
		sb.WriteString("\n  " + Err(m.err) + "\n")
	}
	if m.pending != nil {
		sb.WriteString("\n  " + Warn(fmt.Sprintf("Connect account %s to Greeter?", m.pending.account.Hex())) +
			"  " + Meta("[y/n]") + "\n")
	}
	return sb.String()
}

func (m App) header() string {
	var sb strings.Builder
	if n := m.info.Network; n != nil {
		sb.WriteString("  " + Meta("Network:  ") + ChainName(n.DisplayName) + "\n")
	}
	contract := m.info.Contract.Hex()
	sb.WriteString("  " + Meta("Contract: ") + Addr(contract))
	if url := m.info.Network.AddressURL(contract); url != "" {
		sb.WriteString("  " + Meta(url))
	}
	sb.WriteString("\n")
	if m.info.Account != "" {
		sb.WriteString("  " + Meta("Account:  ") + Addr(m.info.Account) + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
