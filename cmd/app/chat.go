package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/usecase"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interview in the terminal",
	Long: `Runs one interview on stdin/stdout. Type /quit to end it early and
/retry to re-request a reply after a backend failure.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "", "respondent identity (defaults to the test identity)")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.wireInterview(ctx); err != nil {
		return err
	}

	username := strings.TrimSpace(chatUser)
	if username == "" {
		username = cfg.Interview.TestIdentity
	}
	sess, err := a.sessions.Open(ctx, username)
	if errors.Is(err, domain.ErrAlreadyCompleted) {
		fmt.Fprintln(cmd.OutOrStdout(), "Interview already completed.")
		return nil
	}
	if err != nil {
		return err
	}

	t := &terminal{out: cmd.OutOrStdout(), in: bufio.NewScanner(cmd.InOrStdin())}
	return t.run(ctx, a.iv, sess)
}

type terminal struct {
	out io.Writer
	in  *bufio.Scanner
}

func (t *terminal) run(ctx context.Context, iv usecase.InterviewUseCase, sess *model.Session) error {
	res, err := t.turn(func(d usecase.DeltaFunc) (*usecase.TurnResult, error) {
		return iv.Start(ctx, sess, d)
	})
	if done := t.report(res, err); done {
		return nil
	}

	for sess.Active() {
		fmt.Fprint(t.out, "> ")
		if !t.in.Scan() {
			_, err := iv.Quit(context.WithoutCancel(ctx), sess)
			return err
		}
		line := strings.TrimSpace(t.in.Text())
		switch line {
		case "":
			continue
		case "/quit":
			quit, err := iv.Quit(ctx, sess)
			if quit {
				fmt.Fprintf(t.out, "%s: %s\n", model.RoleInterviewer, lastContent(sess))
			}
			return err
		case "/retry":
			res, err = t.turn(func(d usecase.DeltaFunc) (*usecase.TurnResult, error) {
				return iv.Retry(ctx, sess, d)
			})
		default:
			res, err = t.turn(func(d usecase.DeltaFunc) (*usecase.TurnResult, error) {
				return iv.SubmitTurn(ctx, sess, line, d)
			})
		}
		if done := t.report(res, err); done {
			return nil
		}
	}
	return nil
}

// turn streams one reply with a typing cursor that is erased once the reply
// is complete.
func (t *terminal) turn(run func(usecase.DeltaFunc) (*usecase.TurnResult, error)) (*usecase.TurnResult, error) {
	fmt.Fprintf(t.out, "%s: ", model.RoleInterviewer)
	cursor := false
	res, err := run(func(text string) {
		if cursor {
			fmt.Fprint(t.out, "\b \b")
		}
		fmt.Fprint(t.out, text+usecase.TypingCursor)
		cursor = true
	})
	if cursor {
		fmt.Fprint(t.out, "\b \b")
	}
	return res, err
}

// report finishes the reply line and says whether the interview is over.
func (t *terminal) report(res *usecase.TurnResult, err error) bool {
	fmt.Fprintln(t.out)
	if res != nil && res.Code != nil {
		// the closing message replaces whatever streamed before the code
		fmt.Fprintf(t.out, "%s: %s\n", model.RoleInterviewer, res.Reply.Content)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotDurable) {
			fmt.Fprintln(t.out, "[the transcript could not be saved yet]")
		} else {
			fmt.Fprintf(t.out, "[%v] type /retry to try again\n", err)
		}
	}
	return res != nil && res.State.Terminal()
}

func lastContent(sess *model.Session) string {
	if m, ok := sess.LastMessage(); ok {
		return m.Content
	}
	return ""
}
