package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tg-task-tracker/internal/models"
)

// ErrUnauthorized is the single outcome of every failed authentication.
var ErrUnauthorized = errors.New("unauthorized")

const webAppDataKey = "WebAppData"

// InitData is the verified content of a Telegram Web App initData payload.
type InitData struct {
	User     *models.TelegramUser
	AuthDate time.Time
	QueryID  string
}

// InitDataService verifies initData signed with the bot token.
type InitDataService struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewInitDataService creates a verifier for botToken. A positive maxAge rejects
// payloads whose auth_date is older than maxAge.
func NewInitDataService(botToken string, maxAge time.Duration) *InitDataService {
	return &InitDataService{
		secret: webAppSecret(botToken),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func webAppSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// dataCheckString joins every key=value pair except hash, sorted by key, with newlines.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, "\n")
}

func signature(secret []byte, checkString string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate checks the signature of raw and decodes the embedded user.
// User is nil when the payload carries no user field.
func (s *InitDataService) Validate(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrUnauthorized
	}
	received := values.Get("hash")
	if received == "" {
		return nil, ErrUnauthorized
	}

	expected := signature(s.secret, dataCheckString(values))
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, ErrUnauthorized
	}

	data := &InitData{QueryID: values.Get("query_id")}
	if ad := values.Get("auth_date"); ad != "" {
		sec, err := strconv.ParseInt(ad, 10, 64)
		if err != nil {
			return nil, ErrUnauthorized
		}
		data.AuthDate = time.Unix(sec, 0).UTC()
	}
	if s.maxAge > 0 && (data.AuthDate.IsZero() || s.now().Sub(data.AuthDate) > s.maxAge) {
		return nil, ErrUnauthorized
	}

	if rawUser := values.Get("user"); rawUser != "" {
		var u models.TelegramUser
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			return nil, ErrUnauthorized
		}
		data.User = &u
	}
	return data, nil
}

// SignInitData adds a valid hash to values for botToken and encodes the payload.
func SignInitData(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, vs := range values {
		if k == "hash" {
			continue
		}
		signed[k] = append([]string(nil), vs...)
	}
	signed.Set("hash", signature(webAppSecret(botToken), dataCheckString(signed)))
	return signed.Encode()
}
