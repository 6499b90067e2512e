package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/medassist/backend/internal/handler/chat"
	"github.com/zhouzirui/medassist/backend/internal/handler/persona"
	"github.com/zhouzirui/medassist/backend/internal/handler/pharmacy"
	"github.com/zhouzirui/medassist/backend/internal/handler/stream"
	"github.com/zhouzirui/medassist/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/medassist/backend/internal/middleware"
	personaModel "github.com/zhouzirui/medassist/backend/internal/model/persona"
	chatService "github.com/zhouzirui/medassist/backend/internal/service/chat"
	pharmacyService "github.com/zhouzirui/medassist/backend/internal/service/pharmacy"
	"github.com/zhouzirui/medassist/backend/pkg/utils"
)

// Dependencies 路由所需的服务；Chat 或 Pharmacy 为 nil 时对应接口返回 503
type Dependencies struct {
	Personas       personaModel.Store
	Chat           *chatService.Service
	Pharmacy       *pharmacyService.Service
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"chat":     deps.Chat != nil,
				"pharmacy": deps.Pharmacy != nil,
			})
		})

		persona.New(deps.Personas).RegisterRoutes(api)

		if deps.Chat != nil {
			chat.New(deps.Chat).RegisterRoutes(api)
			stream.New(deps.Chat).RegisterRoutes(api)
			ws.New(deps.Chat, deps.AllowedOrigins).RegisterRoutes(api)
		} else {
			unavailable := unavailableHandler("chat unavailable: GEMINI_API_KEY not configured")
			api.HandleFunc("/session", unavailable)
			api.HandleFunc("/session/*", unavailable)
			api.HandleFunc("/stream/*", unavailable)
			api.HandleFunc("/ws/*", unavailable)
		}

		if deps.Pharmacy != nil {
			pharmacy.New(deps.Pharmacy).RegisterRoutes(api)
		} else {
			unavailable := unavailableHandler("pharmacy registry unavailable")
			api.HandleFunc("/pharmacies", unavailable)
			api.HandleFunc("/pharmacies/*", unavailable)
		}
	})

	return r
}

func unavailableHandler(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusServiceUnavailable, message)
	}
}
