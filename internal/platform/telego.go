package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"
)

// Options configures clients produced by the binder.
type Options struct {
	// APITimeout bounds every Bot API call. Zero means DefaultAPITimeout.
	APITimeout time.Duration
	// SendRate/SendBurst pace outbound calls per bot. Telegram allows
	// roughly 30 messages per second per bot.
	SendRate  float64
	SendBurst int
	// WebhookBase, when set, makes Bind register "{base}/webhook/{token}"
	// as the bot's webhook.
	WebhookBase string
	// Proxy is an optional HTTP proxy URL for Bot API traffic.
	Proxy string
}

// DefaultAPITimeout bounds Bot API calls when no timeout is configured.
const DefaultAPITimeout = 10 * time.Second

const defaultSendRate = 25

// TelegoBinder creates telego-backed clients from bot tokens.
type TelegoBinder struct {
	opts Options
}

// NewBinder returns a binder producing clients with the given options.
func NewBinder(opts Options) *TelegoBinder {
	if opts.APITimeout <= 0 {
		opts.APITimeout = DefaultAPITimeout
	}
	if opts.SendRate <= 0 {
		opts.SendRate = defaultSendRate
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = 5
	}
	return &TelegoBinder{opts: opts}
}

// Bind creates a client for token, resolves the bot identity via getMe,
// and registers the webhook endpoint when a webhook base is configured.
func (b *TelegoBinder) Bind(ctx context.Context, token string) (API, error) {
	var botOpts []telego.BotOption
	if b.opts.Proxy != "" {
		proxyURL, err := url.Parse(b.opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", b.opts.Proxy, err)
		}
		botOpts = append(botOpts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}))
	}

	bot, err := telego.NewBot(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create bot client: %w", err)
	}

	c := &Client{
		bot:     bot,
		timeout: b.opts.APITimeout,
		limiter: rate.NewLimiter(rate.Limit(b.opts.SendRate), b.opts.SendBurst),
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	me, err := bot.GetMe(callCtx)
	if err != nil {
		return nil, fmt.Errorf("resolve bot identity: %w", err)
	}
	c.me = BotInfo{ID: me.ID, Username: me.Username, Name: me.FirstName}

	if b.opts.WebhookBase != "" {
		hookCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		hookURL := fmt.Sprintf("%s/webhook/%s", b.opts.WebhookBase, token)
		if err := bot.SetWebhook(hookCtx, &telego.SetWebhookParams{
			URL:            hookURL,
			AllowedUpdates: []string{"message", "callback_query"},
		}); err != nil {
			return nil, fmt.Errorf("register webhook: %w", err)
		}
	}

	return c, nil
}

// Client is the telego-backed API implementation for one bot.
type Client struct {
	bot     *telego.Bot
	me      BotInfo
	timeout time.Duration
	limiter *rate.Limiter
}

// Me returns the bot identity resolved at bind time.
func (c *Client) Me() BotInfo { return c.me }

// call bounds an API call with the configured timeout.
func (c *Client) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// wait applies outbound pacing before a send-class call.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	callCtx, cancel := c.call(ctx)
	defer cancel()

	msg, err := c.bot.SendMessage(callCtx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return msg.MessageID, nil
}

func (c *Client) SendMenu(ctx context.Context, chatID int64, text string, rows [][]Button) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	callCtx, cancel := c.call(ctx)
	defer cancel()

	params := tu.Message(tu.ID(chatID), text)
	params.ReplyMarkup = buildKeyboard(rows)
	msg, err := c.bot.SendMessage(callCtx, params)
	if err != nil {
		return 0, fmt.Errorf("send menu: %w", err)
	}
	return msg.MessageID, nil
}

func (c *Client) EditMenu(ctx context.Context, chatID int64, messageID int, text string, rows [][]Button) error {
	callCtx, cancel := c.call(ctx)
	defer cancel()

	_, err := c.bot.EditMessageText(callCtx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: buildKeyboard(rows),
	})
	if err != nil {
		return fmt.Errorf("edit menu: %w", err)
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	callCtx, cancel := c.call(ctx)
	defer cancel()

	err := c.bot.AnswerCallbackQuery(callCtx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	if err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (c *Client) Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	callCtx, cancel := c.call(ctx)
	defer cancel()

	id, err := c.bot.CopyMessage(callCtx, &telego.CopyMessageParams{
		ChatID:     tu.ID(toChatID),
		FromChatID: tu.ID(fromChatID),
		MessageID:  messageID,
	})
	if err != nil {
		return 0, fmt.Errorf("copy message: %w", err)
	}
	return id.MessageID, nil
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	callCtx, cancel := c.call(ctx)
	defer cancel()

	err := c.bot.DeleteMessage(callCtx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *Client) GetMember(ctx context.Context, chatID, userID int64) (MemberStatus, error) {
	callCtx, cancel := c.call(ctx)
	defer cancel()

	member, err := c.bot.GetChatMember(callCtx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}
	return MemberStatus(member.MemberStatus()), nil
}

func (c *Client) GetChat(ctx context.Context, chatID int64) (ChatInfo, error) {
	callCtx, cancel := c.call(ctx)
	defer cancel()

	chat, err := c.bot.GetChat(callCtx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
	if err != nil {
		return ChatInfo{}, fmt.Errorf("get chat: %w", err)
	}
	return ChatInfo{
		ID:       chat.ID,
		Type:     chat.Type,
		Title:    chat.Title,
		Username: chat.Username,
	}, nil
}

// buildKeyboard converts button rows to a telego inline keyboard.
// Returns nil for empty rows so callers can omit the markup entirely.
func buildKeyboard(rows [][]Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kbRows := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		kbRow := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btn := tu.InlineKeyboardButton(b.Text)
			if b.URL != "" {
				btn = btn.WithURL(b.URL)
			} else {
				btn = btn.WithCallbackData(b.Action)
			}
			kbRow = append(kbRow, btn)
		}
		kbRows = append(kbRows, kbRow)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: kbRows}
}
