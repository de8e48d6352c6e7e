package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bbkanego/seerbot/internal/presentation/tui"
	"github.com/bbkanego/seerbot/internal/render"
	"github.com/bbkanego/seerbot/pkg/domain"
)

// ExitCommand leaves the REPL. "quit" is left to the conversations.
const ExitCommand = "/exit"

// Chatter is the part of the bot the REPL talks to.
type Chatter interface {
	HandleInboundMessage(ctx context.Context, sessionID, botID, utterance, previousChatID string) (domain.OutboundMessage, error)
}

// ChatOptions configures a REPL run.
type ChatOptions struct {
	BotID     string
	SessionID string
	In        io.Reader
	Out       io.Writer

	// Interactive prints the banner and prompts.
	Interactive bool

	// Raw prints the rendered JSON payloads instead of formatting them.
	Raw bool
}

// Chat opens the chat with Initiate and relays lines from In until EOF, ExitCommand,
// or ctx is done. A reply listing options accepts the option number as input.
func Chat(ctx context.Context, bot Chatter, opts ChatOptions) error {
	st := tui.NewStyles(opts.Out)
	if opts.Interactive {
		tui.PrintBanner(opts.Out)
		fmt.Fprintln(opts.Out, st.Faint(fmt.Sprintf("bot %s, session %s. Type %s to leave.", opts.BotID, opts.SessionID, ExitCommand)))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(opts.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var last render.Payload
	previous := ""
	send := func(utterance string) error {
		reply, err := bot.HandleInboundMessage(ctx, opts.SessionID, opts.BotID, utterance, previous)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *domain.ClientError
			if errors.As(err, &ce) {
				fmt.Fprintln(opts.Out, st.Error(fmt.Sprintf("%s: %s (ref %s)", ce.Code, ce.Message, ce.ReferenceCode)))
				return nil
			}
			fmt.Fprintln(opts.Out, st.Error(err.Error()))
			return nil
		}
		previous = reply.ChatID
		last = printReply(opts, st, reply.ResponseText)
		return nil
	}

	if err := send(domain.IntentInitiate); err != nil {
		return err
	}

	for {
		if opts.Interactive {
			fmt.Fprint(opts.Out, st.Prompt("> "))
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == ExitCommand:
			return nil
		}
		if choice := pickOption(last, line); choice != "" {
			line = choice
		}
		if err := send(line); err != nil {
			return err
		}
	}
}

// pickOption maps "2" to the click response of the second option of the last reply.
func pickOption(last render.Payload, line string) string {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(last.Options) {
		return ""
	}
	return last.Options[n-1].ClickResponse
}

func printReply(opts ChatOptions, st tui.Styles, text string) render.Payload {
	var p render.Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		// Renderers other than the built-in one may answer with plain text.
		fmt.Fprintln(opts.Out, st.Bot(text))
		return render.Payload{}
	}
	if opts.Raw {
		fmt.Fprintln(opts.Out, text)
		return p
	}

	fmt.Fprintln(opts.Out, st.Bot(p.Message))
	for i, o := range p.Options {
		fmt.Fprintf(opts.Out, "  %d) %s\n", i+1, o.Option)
	}
	return p
}
