package natsbus

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/jwt/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

var ErrCredentialsExpired = errors.New("nats credentials expired")

// Credentials is a decorated NATS user credentials file: a user JWT and the
// nkey seed that signs the server nonce.
type Credentials struct {
	token   string
	kp      nkeys.KeyPair
	Name    string
	Subject string
	Expires time.Time // zero when the JWT never expires
}

func LoadCredentials(path string) (*Credentials, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read NATS credentials: %w", err)
	}
	return ParseCredentials(contents, time.Now())
}

// ParseCredentials checks that the seed belongs to the JWT subject and that the
// JWT is still valid at now.
func ParseCredentials(contents []byte, now time.Time) (*Credentials, error) {
	token, err := jwt.ParseDecoratedJWT(contents)
	if err != nil {
		return nil, fmt.Errorf("parse user jwt: %w", err)
	}
	claims, err := jwt.DecodeUserClaims(token)
	if err != nil {
		return nil, fmt.Errorf("decode user claims: %w", err)
	}

	kp, err := jwt.ParseDecoratedNKey(contents)
	if err != nil {
		return nil, fmt.Errorf("parse user seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	if !nkeys.IsValidPublicUserKey(pub) {
		return nil, errors.New("credentials seed is not a user key")
	}
	if pub != claims.Subject {
		return nil, errors.New("credentials seed does not match jwt subject")
	}

	creds := &Credentials{token: token, kp: kp, Name: claims.Name, Subject: claims.Subject}
	if claims.Expires > 0 {
		creds.Expires = time.Unix(claims.Expires, 0).UTC()
		if !now.Before(creds.Expires) {
			return nil, fmt.Errorf("%w at %s", ErrCredentialsExpired, creds.Expires.Format(time.RFC3339))
		}
	}
	return creds, nil
}

// Option authenticates a connection with the parsed JWT and seed.
func (c *Credentials) Option() nats.Option {
	return nats.UserJWT(
		func() (string, error) { return c.token, nil },
		func(nonce []byte) ([]byte, error) { return c.kp.Sign(nonce) },
	)
}
