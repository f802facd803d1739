package middleware

import (
	"net/http"
	"strings"

	"github.com/velmora/unicart/api/responses"
	"github.com/velmora/unicart/pkg/auth"
	"github.com/velmora/unicart/pkg/config"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
)

const deviceIDHeader = "X-Device-Id"

// Session resolves the caller's identity for cart routes. The device id header
// is mandatory: it keys the guest cart and the reconciler registry. The bearer
// token is optional; an invalid or expired token downgrades the caller to guest
// rather than rejecting the request, so the reconciler sees the same logged-out
// signal the commerce backend would.
func Session(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if deviceID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Device-Id header is required"))
				return
			}

			sess := auth.Session{DeviceID: deviceID}

			if token := bearerToken(r); token != "" {
				claims, err := auth.ParseAccessToken(cfg, token)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithDeviceID(ctx, deviceID), "session.token_rejected")
					}
				} else {
					sess.Authenticated = true
					sess.UserID = claims.UserID.String()
					sess.Token = token
				}
			}

			if logg != nil {
				ctx = logg.WithDeviceID(ctx, deviceID)
				if sess.Authenticated {
					ctx = logg.WithUserID(ctx, sess.UserID)
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(ctx, sess)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
