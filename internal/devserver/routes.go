package devserver

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (s *Server) registerRoutes(router *gin.Engine) {
	auth := s.requireAuth()
	optional := s.optionalAuth()

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", s.login)
		authGroup.POST("/register", s.register)
		authGroup.POST("/refresh", s.refresh)
		authGroup.POST("/logout", s.logout)
		authGroup.GET("/me", auth, s.me)
	}

	users := router.Group("/users")
	{
		users.GET("/:id", s.getUser)
		users.PUT("/me", auth, s.updateProfile)
		users.PUT("/me/password", auth, s.changePassword)
		users.GET("/me/tokens", auth, s.tokenBalance)
	}

	characters := router.Group("/characters")
	{
		characters.GET("", optional, s.listCharacters)
		characters.GET("/:id", optional, s.getCharacter)
		characters.POST("", auth, s.createCharacter)
		characters.PUT("/:id", auth, s.updateCharacter)
		characters.DELETE("/:id", auth, s.deleteCharacter)
		characters.POST("/:id/like", auth, s.likeCharacter)
	}

	chat := router.Group("/chat", auth)
	{
		chat.GET("", s.listChats)
		chat.POST("", s.startChat)
		chat.GET("/:id", s.getChat)
		chat.DELETE("/:id", s.deleteChat)
		chat.GET("/:id/messages", s.listMessages)
		chat.POST("/:id/messages", s.sendMessage)
	}

	payment := router.Group("/payment")
	{
		payment.GET("/packages", s.listPackages)
		payment.POST("/checkout", auth, s.checkout)
		payment.POST("/confirm", auth, s.confirmPayment)
		payment.GET("/history", auth, s.paymentHistory)
		payment.GET("/subscription", auth, s.getSubscription)
		payment.POST("/subscription", auth, s.subscribe)
		payment.DELETE("/subscription", auth, s.cancelSubscription)
	}

	// Канал уведомлений и REST список живут на одном пути: upgrade запрос уходит в сокет.
	router.GET("/notifications", func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			s.serveSocket(c)
			return
		}
		auth(c)
		if c.IsAborted() {
			return
		}
		s.listNotifications(c)
	})
	notifications := router.Group("/notifications", auth)
	{
		notifications.GET("/unread-count", s.unreadCount)
		notifications.PATCH("/read-all", s.markAllRead)
		notifications.PATCH("/:id/read", s.markRead)
		notifications.DELETE("/:id", s.deleteNotification)
	}

	router.GET("/banners", s.listBanners)

	personas := router.Group("/personas", auth)
	{
		personas.GET("", s.listPersonas)
		personas.POST("", s.createPersona)
		personas.PUT("/:id", s.updatePersona)
		personas.DELETE("/:id", s.deletePersona)
	}

	worlds := router.Group("/worlds")
	{
		worlds.GET("", optional, s.listWorlds)
		worlds.GET("/:id", optional, s.getWorld)
		worlds.POST("", auth, s.createWorld)
	}

	images := router.Group("/images", auth)
	{
		images.GET("", s.listImages)
		images.POST("", s.uploadImage)
		images.DELETE("/:id", s.deleteImage)
	}
}
