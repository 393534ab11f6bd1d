// Package oauth verifies Google ID tokens presented by the mobile client.
// Signature verification uses Google's published JWKS, cached with a TTL.
package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var ErrInvalidToken = errors.New("invalid google token")

type GoogleUser struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type Verifier struct {
	clientID string
	jwksURL  string
	ttl      time.Duration

	mu    sync.RWMutex
	keys  map[string]*rsa.PublicKey
	expAt time.Time

	http *http.Client
}

func NewVerifier(clientID, jwksURL string, ttl time.Duration) *Verifier {
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}
	return &Verifier{
		clientID: clientID,
		jwksURL:  jwksURL,
		ttl:      ttl,
		keys:     make(map[string]*rsa.PublicKey),
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// CalendarConfig is the OAuth config for the calendar consent flow; the sync
// operation itself stores opaque ids only (see the events handler).
func CalendarConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "email", "https://www.googleapis.com/auth/calendar.events"},
		Endpoint:     ggoogle.Endpoint,
	}
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var doc jwks
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}
	tmp := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil || len(eb) == 0 {
			continue
		}
		e := 0
		for _, b := range eb {
			e = e<<8 + int(b)
		}
		tmp[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}
	}
	v.mu.Lock()
	v.keys = tmp
	v.expAt = time.Now().Add(v.ttl)
	v.mu.Unlock()
	return nil
}

func (v *Verifier) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	if pk, ok := v.keys[kid]; ok && time.Now().Before(v.expAt) {
		v.mu.RUnlock()
		return pk, nil
	}
	v.mu.RUnlock()

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if pk, ok := v.keys[kid]; ok {
		return pk, nil
	}
	return nil, errors.New("kid not found in JWKS")
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verify checks signature, issuer and audience of a Google ID token and
// returns the verified profile.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*GoogleUser, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	tok, parts, err := parser.ParseUnverified(idToken, jwt.MapClaims{})
	if err != nil || len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return nil, ErrInvalidToken
	}
	pub, err := v.getKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &idClaims{}
	_, err = jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience(v.clientID))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != "https://accounts.google.com" && claims.Issuer != "accounts.google.com" {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &GoogleUser{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
