package email

type Config struct {
	Provider             string `env:"EMAIL_PROVIDER" envDefault:"dev"` // postmark | dev
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_FROM" envDefault:"noreply@notifyhub.local"`
	ReplyTo              string `env:"EMAIL_REPLY_TO"`
	MessageStream        string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

const (
	ProviderPostmark = "postmark"
	ProviderDev      = "dev"
)

// NewSender picks the transport named by cfg.Provider.
func NewSender(cfg Config) (EmailSender, error) {
	switch cfg.Provider {
	case ProviderPostmark:
		return NewPostmarkClient(cfg)
	case ProviderDev, "":
		return NewDevSender(cfg.DevDir), nil
	default:
		return nil, ErrUnknownProvider
	}
}
