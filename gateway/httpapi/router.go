// Package httpapi implements the query and owner-only admin HTTP surface
// over Core, the withdrawal manager, and the validator set — the same
// chi.Router-plus-middleware-chain shape as the teacher's gateway/routes,
// scaled down to one service's own handlers rather than a reverse proxy
// fan-out to several microservices.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liquidctl/domain/corefsm"
	"liquidctl/domain/ownership"
	"liquidctl/domain/puppeteer"
	"liquidctl/domain/splitter"
	"liquidctl/domain/validatorset"
	"liquidctl/domain/withdrawal"
	"liquidctl/gateway/auth"
)

// Config bundles everything the router needs to build handlers.
type Config struct {
	Core          *corefsm.Core
	Withdrawal    *withdrawal.Manager
	Validators    *validatorset.Set
	Pump          *splitter.RewardsPump
	Splitter      *splitter.Splitter
	Puppeteer     *puppeteer.Puppeteer
	// Owned is the shared two-step ownership guard backing Core,
	// ValidatorSet, the withdrawal manager, and the splitter/pump alike
	// (one owner across this daemon's single process).
	Owned         *ownership.Owned
	Authenticator *auth.Authenticator
	CORSOrigins   []string
	Logger        *slog.Logger
}

// New builds the chi.Router exposing the query surface at /v1/* and the
// owner-only admin surface at /v1/admin/*.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{cfg: cfg, logger: logger}

	limiter := newRateLimiter(map[string]RateLimit{
		"bond":     {RatePerSecond: 2, Burst: 20},
		"unbond":   {RatePerSecond: 2, Burst: 20},
		"withdraw": {RatePerSecond: 2, Burst: 20},
		"admin":    {RatePerSecond: 1, Burst: 10},
	})

	r := chi.NewRouter()
	r.Use(cors(cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/exchange-rate", h.getExchangeRate)
		v1.Get("/validators", h.listValidators)
		v1.Get("/batches/{id}", h.getBatch)
		v1.Get("/vouchers/{id}", h.getVoucher)
		v1.With(limiter.middleware("bond")).Post("/bond", h.postBond)
		v1.With(limiter.middleware("unbond")).Post("/unbond", h.postUnbond)
		v1.With(limiter.middleware("withdraw")).Post("/withdraw", h.postWithdraw)

		v1.Route("/admin", func(admin chi.Router) {
			if cfg.Authenticator != nil {
				admin.Use(cfg.Authenticator.Middleware)
			}
			admin.Use(limiter.middleware("admin"))
			admin.Post("/config", h.postUpdateConfig)
			admin.Post("/pause", h.postSetPause)
			admin.Post("/validators", h.postUpdateValidators)
			admin.Post("/ontop", h.postEditOnTop)
			admin.Post("/emergency-withdrawal", h.postEmergencyWithdrawal)
			admin.Post("/rewards/credit", h.postCreditReward)
			admin.Post("/rewards/split", h.postSplitRewards)
			admin.Post("/ownership/transfer", h.postTransferOwnership)
			admin.Post("/ownership/accept", h.postAcceptOwnership)
			admin.Post("/ownership/renounce", h.postRenounceOwnership)
			admin.Post("/ownership/cancel", h.postCancelOwnershipTransfer)
			admin.Post("/ica/register", h.postRegisterICA)
		})
	})

	return r
}

func cors(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origins[0])
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type handlers struct {
	cfg    Config
	logger *slog.Logger
}
