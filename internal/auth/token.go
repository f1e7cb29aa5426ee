package auth

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "errors"
    "strconv"
    "strings"
    "time"
)

// ObserverScope is the scope embedded in tokens that admit event-stream observers.
const ObserverScope = "observer"

var (
    ErrTokenFormat = errors.New("invalid token format")
    ErrTokenSig    = errors.New("invalid token signature")
    ErrTokenExp    = errors.New("token expired")
    ErrTokenScope  = errors.New("token scope mismatch")
    ErrNoSecret    = errors.New("token secret not configured")
)

// GenerateObserverToken builds a token for scope that expires at expUnix.
// Format: base64url(scope + "." + exp_unix + "." + hex(hmac_sha256(secret, scope+"."+exp)))
func GenerateObserverToken(secret, scope string, expUnix int64) (string, error) {
    if secret == "" {
        return "", ErrNoSecret
    }
    msg := scope + "." + strconv.FormatInt(expUnix, 10)
    raw := msg + "." + hex.EncodeToString(sign(secret, msg))
    return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// ValidateObserverToken parses and checks the token, returning its scope and expiry.
// Tokens stay valid for skewSeconds past their expiry.
func ValidateObserverToken(secret, token, expectScope string, now time.Time, skewSeconds int) (string, int64, error) {
    if secret == "" {
        return "", 0, ErrNoSecret
    }
    b, err := base64.RawURLEncoding.DecodeString(token)
    if err != nil {
        return "", 0, ErrTokenFormat
    }
    // Scope may not contain dots; exp and sig are the last two fields.
    parts := strings.Split(string(b), ".")
    if len(parts) != 3 {
        return "", 0, ErrTokenFormat
    }
    scope, expStr, sigHex := parts[0], parts[1], parts[2]
    exp, err := strconv.ParseInt(expStr, 10, 64)
    if err != nil {
        return "", 0, ErrTokenFormat
    }
    got, err := hex.DecodeString(sigHex)
    if err != nil {
        return "", 0, ErrTokenFormat
    }
    if !hmac.Equal(sign(secret, scope+"."+expStr), got) {
        return "", 0, ErrTokenSig
    }
    if expectScope != "" && scope != expectScope {
        return "", 0, ErrTokenScope
    }
    if now.Unix() > exp+int64(skewSeconds) {
        return "", 0, ErrTokenExp
    }
    return scope, exp, nil
}

func sign(secret, msg string) []byte {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(msg))
    return mac.Sum(nil)
}
