package http

import (
	"crypto/rand"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	deviceSessionName = "nq-device"
	deviceIDKey       = "deviceId"
	deviceMaxAge      = 365 * 24 * 60 * 60
)

// DeviceIdentity issues every browser a stable, signed device id cookie. Preferences are keyed
// by it and it doubles as the learner id when none is supplied.
type DeviceIdentity struct {
	store *sessions.CookieStore
}

func NewDeviceIdentity(secret []byte, secure bool) *DeviceIdentity {
	if len(secret) == 0 {
		log.Printf("no cookie secret configured; device ids will not survive a restart")
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   deviceMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &DeviceIdentity{store: store}
}

// DeviceID returns the caller's device id, setting the cookie on first contact.
func (d *DeviceIdentity) DeviceID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := d.store.Get(r, deviceSessionName)
	if err != nil {
		// A cookie signed with another key decodes to a fresh session.
		log.Printf("device cookie rejected: %v", err)
	}
	if id, ok := sess.Values[deviceIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[deviceIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}
