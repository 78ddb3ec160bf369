// Package service routes Telegram commands onto the habit engine
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/logger"

	"habitreward/internal/core/clock"
	authdomain "habitreward/internal/services/auth/domain"
	completiondomain "habitreward/internal/services/completion/domain"
	habitsdomain "habitreward/internal/services/habits/domain"
	"habitreward/internal/services/telegram/domain"
	usersdomain "habitreward/internal/services/users/domain"
)

// Service implements domain.HandlerPort. It understands a deliberately small
// command surface, everything conversational lives in the bot proper
type Service struct {
	Users     usersdomain.ReaderPort
	Registrar usersdomain.WriterPort
	Habits    habitsdomain.ReaderPort
	Engine    completiondomain.EnginePort
	Codes     authdomain.CodePort
}

// New constructs the webhook command router
func New(users usersdomain.ReaderPort, registrar usersdomain.WriterPort, habits habitsdomain.ReaderPort,
	engine completiondomain.EnginePort, codes authdomain.CodePort) *Service {
	return &Service{Users: users, Registrar: registrar, Habits: habits, Engine: engine, Codes: codes}
}

const helpText = `Commands:
/done <habit> [YYYY-MM-DD] - log a habit, optionally for a past day
/undo <habit> - revert the latest completion of a habit
/code - request a login code for the app
/help - this message`

// HandleUpdate implements domain.HandlerPort
func (s *Service) HandleUpdate(ctx context.Context, u domain.Update) *domain.Reply {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	cmd, args := splitCommand(text)
	reply := func(format string, a ...any) *domain.Reply {
		return &domain.Reply{ChatID: msg.Chat.ID, Text: fmt.Sprintf(format, a...)}
	}

	switch cmd {
	case "/start":
		return s.start(ctx, msg, reply)
	case "/done":
		return s.done(ctx, msg, args, reply)
	case "/undo":
		return s.undo(ctx, msg, args, reply)
	case "/code":
		return s.code(ctx, msg, reply)
	case "/help":
		return reply(helpText)
	default:
		return reply("Unknown command %s.\n%s", cmd, helpText)
	}
}

// splitCommand separates the command word from its arguments, dropping the
// @botname suffix of group mentions
func splitCommand(text string) (cmd string, args []string) {
	fields := strings.Fields(text)
	cmd = strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, fields[1:]
}

type replyFn func(format string, a ...any) *domain.Reply

func (s *Service) start(ctx context.Context, msg *domain.Message, reply replyFn) *domain.Reply {
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if name == "" {
		name = msg.From.Username
	}
	u, err := s.Registrar.Register(ctx, msg.From.ID, name, msg.From.LanguageCode)
	if err != nil {
		logger.C(ctx).Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("webhook registration failed")
		return reply("Something went wrong, please try again.")
	}
	return reply("Hi %s! You are all set.\n%s", u.Name, helpText)
}

func (s *Service) done(ctx context.Context, msg *domain.Message, args []string, reply replyFn) *domain.Reply {
	if len(args) == 0 {
		return reply("Usage: /done <habit> [YYYY-MM-DD]")
	}

	var target *time.Time
	if len(args) > 1 {
		if d, err := clock.ParseDate(args[len(args)-1]); err == nil {
			target = &d
			args = args[:len(args)-1]
		}
	}
	habitName := strings.Join(args, " ")

	res, err := s.Engine.ProcessCompletion(ctx, msg.From.ID, habitName, target, "")
	if err != nil {
		return reply("%s", friendlyError(err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s logged. Streak: %d.", res.HabitName, res.Streak)
	if res.GotReward && res.Reward != nil {
		fmt.Fprintf(&b, "\nYou won a piece of %q!", res.Reward.Name)
		if res.Progress != nil {
			fmt.Fprintf(&b, " Progress: %d/%d.", res.Progress.PiecesEarned, res.Progress.PiecesRequired)
			if res.Progress.PiecesEarned >= res.Progress.PiecesRequired {
				b.WriteString(" The reward is complete, claim it in the app!")
			}
		}
	}
	return reply("%s", b.String())
}

func (s *Service) undo(ctx context.Context, msg *domain.Message, args []string, reply replyFn) *domain.Reply {
	if len(args) == 0 {
		return reply("Usage: /undo <habit>")
	}
	habitName := strings.Join(args, " ")

	u, err := s.Users.ByTelegramID(ctx, msg.From.ID)
	if err != nil {
		return reply("%s", friendlyError(err))
	}
	h, err := s.Habits.ActiveByName(ctx, u.ID, habitName)
	if err != nil {
		return reply("%s", friendlyError(err))
	}
	res, err := s.Engine.RevertLatest(ctx, msg.From.ID, h.ID)
	if err != nil {
		return reply("%s", friendlyError(err))
	}

	out := fmt.Sprintf("Reverted the latest completion of %s.", res.HabitName)
	if res.RewardReverted && res.RewardName != nil {
		out += fmt.Sprintf(" A piece of %q was taken back.", *res.RewardName)
	}
	return reply("%s", out)
}

func (s *Service) code(ctx context.Context, msg *domain.Message, reply replyFn) *domain.Reply {
	if _, err := s.Codes.IssueCode(ctx, msg.From.ID, nil); err != nil {
		return reply("%s", friendlyError(err))
	}
	// same phrasing whether or not the account exists, the chat surface must
	// not confirm registrations either
	return reply("If your account exists, a login code is on its way.")
}

// friendlyError maps engine error codes onto chat-sized phrasing
func friendlyError(err error) string {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUserNotFound:
		return "You are not registered yet. Send /start to begin."
	case perr.ErrorCodeUserInactive:
		return "Your account is deactivated."
	case perr.ErrorCodeHabitNotFound:
		return "I couldn't find that habit."
	case perr.ErrorCodeAlreadyCompleted:
		return "That habit is already logged for that day."
	case perr.ErrorCodeFutureDate:
		return "That date is in the future."
	case perr.ErrorCodeTooOld:
		return "That date is too far in the past."
	case perr.ErrorCodeBeforeHabitCreation:
		return "That date is before the habit was created."
	case perr.ErrorCodeNothingToRevert:
		return "Nothing to undo for that habit."
	case perr.ErrorCodeRateLimited:
		return "Too many requests, please try again later."
	default:
		return "Something went wrong, please try again."
	}
}
