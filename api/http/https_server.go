package http

import (
	"OmniAgent/internal/config"
	jwtMiddleware "OmniAgent/internal/middleware/jwt"
	accountService "OmniAgent/internal/modules/account/application/service"
	accountHandler "OmniAgent/internal/modules/account/interface/http"
	knowledgeService "OmniAgent/internal/modules/knowledge/application/service"
	knowledgeHandler "OmniAgent/internal/modules/knowledge/interface/http"
	"OmniAgent/pkg/back"
	"OmniAgent/pkg/ssl"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps 路由需要的服务，由 main 组装
type Deps struct {
	Sources  knowledgeService.SourceSyncService
	Accounts accountService.AccountSyncService
	// VectorStore / MetadataStore 仅用于 /healthz 展示
	VectorStore   string
	MetadataStore bool
}

func NewRouter(conf *config.Config, deps Deps) *gin.Engine {
	ge := gin.New()
	ge.Use(gin.Recovery())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	ge.Use(cors.New(corsConfig))
	if conf.MainConfig.ForceTLS {
		ge.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	ge.GET("/healthz", func(c *gin.Context) {
		back.Success(c, gin.H{
			"status":         "ok",
			"vector_store":   deps.VectorStore,
			"metadata_store": deps.MetadataStore,
		})
	})

	sourceH := knowledgeHandler.NewSourceHandler(deps.Sources)
	accountH := accountHandler.NewAccountHandler(deps.Accounts)

	authed := ge.Group("/")
	if jwtMiddleware.Enabled() {
		authed.Use(jwtMiddleware.Auth())
	}
	authed.POST("/knowledge/source/ingest", sourceH.Ingest)
	authed.POST("/knowledge/source/delete", sourceH.Delete)
	authed.GET("/knowledge/source/list", sourceH.List)
	authed.POST("/whatsapp/account/save", accountH.Save)
	authed.POST("/whatsapp/account/status", accountH.UpdateStatus)
	authed.GET("/whatsapp/account", accountH.Get)
	return ge
}
