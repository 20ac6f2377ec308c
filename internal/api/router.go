package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/rohits-web03/estately/docs"
	"github.com/rohits-web03/estately/internal/api/handlers"
	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/api/validation"
	"github.com/rohits-web03/estately/internal/metrics"
)

// Deps are the handlers and cross-cutting pieces the router mounts.
type Deps struct {
	Tokens   middleware.TokenParser
	Auth     *handlers.AuthHandler
	Listings *handlers.ListingHandler
	Users    *handlers.UserHandler
	Images   *handlers.ImageHandler
	// ImageValidator classifies listing image URLs during validation. Nil
	// skips classification.
	ImageValidator validation.ImageValidator
	Cache          *middleware.ResponseCache
	RateLimit      func(http.Handler) http.Handler
	Cors           cors.Options
}

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.HandlerFunc) http.Handler {
	var out http.Handler = h
	for i := len(c) - 1; i >= 0; i-- {
		out = c[i](out)
	}
	return out
}

func SetupRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	rateLimit := d.RateLimit
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}
	auth := middleware.Auth(d.Tokens)
	cached := d.Cache.Middleware
	body := validation.Body
	listingSchema := validation.Listing(d.ImageValidator)

	// ---------- PUBLIC ROUTES ----------
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /docs/", httpSwagger.WrapHandler)

	mux.Handle("POST /api/auth/sign-up", chain{rateLimit, body(validation.SignUp)}.then(d.Auth.SignUp))
	mux.Handle("POST /api/auth/sign-in", chain{rateLimit, body(validation.SignIn)}.then(d.Auth.SignIn))
	mux.Handle("POST /api/auth/google-sign-in", chain{rateLimit, body(validation.ProviderSignIn)}.then(d.Auth.GoogleSignIn))
	mux.HandleFunc("POST /api/auth/sign-out", d.Auth.SignOut)
	mux.Handle("GET /api/auth/google/login", chain{rateLimit}.then(d.Auth.GoogleLogin))
	mux.Handle("GET /api/auth/google/callback", chain{rateLimit}.then(d.Auth.GoogleCallback))

	search := chain{cached, validation.Query(validation.SearchListings)}.then(d.Listings.Search)
	mux.Handle("GET /api/listing/search", search)
	mux.Handle("POST /api/listing/search", search)
	mux.Handle("GET /api/listing/get/{id}", cached(http.HandlerFunc(d.Listings.Get)))

	// ---------- PROTECTED ROUTES ----------
	mux.Handle("GET /api/auth/me", chain{auth}.then(d.Auth.Me))

	mux.Handle("POST /api/listing/create", chain{auth, body(listingSchema)}.then(d.Listings.Create))
	mux.Handle("PATCH /api/listing/update/{id}", chain{auth, d.Listings.RequireOwner, body(listingSchema)}.then(d.Listings.Update))
	mux.Handle("DELETE /api/listing/delete/{id}", chain{auth}.then(d.Listings.Delete))

	mux.Handle("PATCH /api/user/update/{id}", chain{auth, d.Users.RequireSelf, body(validation.UpdateUser)}.then(d.Users.Update))
	mux.Handle("DELETE /api/user/delete/{id}", chain{auth}.then(d.Users.Delete))
	mux.Handle("GET /api/user/listings/{id}", chain{auth}.then(d.Users.Listings))
	mux.Handle("GET /api/user/{id}", chain{auth}.then(d.Users.Get))

	mux.Handle("POST /api/images/upload", chain{auth}.then(d.Images.Upload))
	mux.Handle("POST /api/images/presign", chain{auth}.then(d.Images.Presign))
	mux.Handle("POST /api/images/complete", chain{auth}.then(d.Images.Complete))
	mux.Handle("POST /api/images/discard", chain{auth}.then(d.Images.Discard))
	mux.Handle("DELETE /api/images", chain{auth}.then(d.Images.Delete))

	slog.Info("router initialized")

	var handler http.Handler = middleware.HTTPMetrics(mux)
	handler = cors.New(d.Cors).Handler(handler)
	handler = middleware.Logger(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(handler)
	return handler
}
