package web

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"
)

const (
	flashCookieName = "flash"
	flashContextKey = "flash.messages"
	maxFlashes      = 8
)

// flashSigner signs one-time flash messages stored client side.
// Cookie value: base64url(json(messages)) "." base64url(blake2b-256 MAC keyed with the secret)
type flashSigner struct {
	key []byte
}

func newFlashSigner(secret string) *flashSigner {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &flashSigner{key: key}
}

func (f *flashSigner) mac(payload []byte) []byte {
	h, err := blake2b.New256(f.key)
	if err != nil {
		// key length is bounded in newFlashSigner
		panic("blake2b: " + err.Error())
	}
	h.Write(payload)
	return h.Sum(nil)
}

// Encode returns the signed cookie value for messages
func (f *flashSigner) Encode(messages []string) (string, error) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(f.mac(payload)), nil
}

// Decode verifies value and returns its messages. ok is false for anything not signed by f.
func (f *flashSigner) Decode(value string) (messages []string, ok bool) {
	body, sig, found := strings.Cut(value, ".")
	if !found {
		return nil, false
	}
	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(body)
	if err != nil {
		return nil, false
	}
	got, err := enc.DecodeString(sig)
	if err != nil {
		return nil, false
	}
	if subtle.ConstantTimeCompare(got, f.mac(payload)) != 1 {
		return nil, false
	}
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// pendingFlashes returns the messages queued for this client, cookie first
func (s *WebServer) pendingFlashes(c *gin.Context) []string {
	if v, exists := c.Get(flashContextKey); exists {
		return v.([]string)
	}
	var messages []string
	if value, err := c.Cookie(flashCookieName); err == nil && value != "" {
		if decoded, ok := s.flash.Decode(value); ok {
			messages = decoded
		} else {
			log.Printf("[WEB]: req=%s ignoring invalid flash cookie from %s", requestID(c), c.ClientIP())
		}
	}
	c.Set(flashContextKey, messages)
	return messages
}

// addFlash queues msg for display on the next rendered page of this client
func (s *WebServer) addFlash(c *gin.Context, msg string) {
	messages := append(s.pendingFlashes(c), msg)
	if len(messages) > maxFlashes {
		messages = messages[len(messages)-maxFlashes:]
	}
	c.Set(flashContextKey, messages)

	value, err := s.flash.Encode(messages)
	if err != nil {
		log.Printf("[WEB]: req=%s failed to encode flash: %v", requestID(c), err)
		return
	}
	s.setFlashCookie(c, value, 0)
}

// consumeFlashes returns all queued messages and clears them
func (s *WebServer) consumeFlashes(c *gin.Context) []string {
	messages := s.pendingFlashes(c)
	if _, err := c.Cookie(flashCookieName); err == nil || len(messages) > 0 {
		s.setFlashCookie(c, "", -1)
	}
	c.Set(flashContextKey, []string(nil))
	return messages
}

func (s *WebServer) setFlashCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookieName, value, maxAge, "/", "", s.Config.Web.SSL, true)
}
