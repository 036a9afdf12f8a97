package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"ihp-inventory/internal/middleware"
	"ihp-inventory/internal/utils"
)

// Deps is everything the router needs. The collections all come from the one
// client created in main.
type Deps struct {
	Users   *mongo.Collection
	Books   *mongo.Collection
	Writers *mongo.Collection
	Audit   *utils.Logger
	Issuer  *utils.TokenIssuer
	Ping    func(context.Context) error
	Log     *slog.Logger
	Timeout time.Duration

	AuthEnabled   bool
	AdminEmails   []string
	AdminPassword string
	// PasswordCost is the bcrypt cost for new user passwords.
	PasswordCost int
}

func NewRouter(d Deps) *mux.Router {
	if d.Log == nil {
		d.Log = utils.NopLogger()
	}

	signedIn := middleware.Require(middleware.AllowAll)
	admin := middleware.Require(middleware.AllowAll)
	if d.AuthEnabled {
		jwtGate := middleware.VerifyJWT(d.Issuer)
		signedIn = middleware.Require(jwtGate)
		admin = middleware.Require(jwtGate, middleware.VerifyAdmin(d.Users, d.AdminEmails, timeoutOr(d.Timeout)))
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(d.Log), middleware.Recover, middleware.JSONMiddleware)

	r.HandleFunc("/", Root).Methods(http.MethodGet)
	if d.Ping != nil {
		r.HandleFunc("/healthz", Healthz(d.Ping, d.Log)).Methods(http.MethodGet)
	}
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authHandler := &AuthHandler{
		Users:         d.Users,
		Issuer:        d.Issuer,
		Log:           d.Log,
		Timeout:       d.Timeout,
		Admins:        d.AdminEmails,
		AdminPassword: d.AdminPassword,
	}
	if d.Issuer != nil {
		r.HandleFunc("/jwt", authHandler.IssueToken).Methods(http.MethodPost)
	}

	userHandler := NewUserHandler(d.Users, d.Audit, d.Log)
	userHandler.Timeout = d.Timeout
	userHandler.Admins = d.AdminEmails
	userHandler.PasswordCost = d.PasswordCost

	r.HandleFunc("/users", userHandler.CreateUser).Methods(http.MethodPost)
	r.Handle("/users", admin(http.HandlerFunc(userHandler.GetUsers))).Methods(http.MethodGet)
	r.Handle("/users/admin/{email}", signedIn(http.HandlerFunc(userHandler.CheckAdmin))).Methods(http.MethodGet)
	r.Handle("/users/admin/{email}", admin(http.HandlerFunc(userHandler.PromoteUser))).Methods(http.MethodPatch)
	r.Handle("/users/{email}", signedIn(http.HandlerFunc(userHandler.GetUser))).Methods(http.MethodGet)

	bookHandler := NewBookHandler(d.Books, d.Audit, d.Log)
	bookHandler.Timeout = d.Timeout

	for _, path := range []string{"/books", "/all-books"} {
		r.Handle(path, admin(http.HandlerFunc(bookHandler.AddBook))).Methods(http.MethodPost)
		r.HandleFunc(path, bookHandler.GetBooks).Methods(http.MethodGet)
	}
	r.Handle("/books/restock/{id}", admin(http.HandlerFunc(bookHandler.RestockBook))).Methods(http.MethodPatch)
	r.HandleFunc("/books/{id}", bookHandler.GetBook).Methods(http.MethodGet)
	r.Handle("/books/{id}", admin(http.HandlerFunc(bookHandler.UpdateBook))).Methods(http.MethodPatch)
	r.Handle("/books/{id}", admin(http.HandlerFunc(bookHandler.DeleteBook))).Methods(http.MethodDelete)

	writerHandler := &WriterHandler{Collection: d.Writers, AuditLogger: d.Audit, Log: d.Log, Timeout: d.Timeout}
	r.Handle("/writers", admin(http.HandlerFunc(writerHandler.AddWriter))).Methods(http.MethodPost)
	r.HandleFunc("/writers", writerHandler.GetWriters).Methods(http.MethodGet)

	statsHandler := &StatsHandler{BookCol: d.Books, WriterCol: d.Writers, UserCol: d.Users, Log: d.Log, Timeout: d.Timeout}
	r.Handle("/stats", admin(http.HandlerFunc(statsHandler.GetStats))).Methods(http.MethodGet)

	return r
}

// WithCORS allows browser clients from origins to call the API with bearer
// tokens.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
	)(h)
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
