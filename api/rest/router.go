package rest

import "github.com/gin-gonic/gin"

// Mount registers the character and trade routes on an authenticated group.
func Mount(api *gin.RouterGroup, chars *CharacterHandler, trades *TradeHandler) {
	charsG := api.Group("/characters/:token")
	charsG.GET("", chars.Get)
	charsG.POST("/equip", chars.Equip)
	charsG.POST("/unequip", chars.Unequip)
	charsG.POST("/transfer", chars.Transfer)
	charsG.POST("/coins", chars.Coins)
	charsG.POST("/restore", chars.Restore)

	api.GET("/partners", trades.Partners)

	tradeG := api.Group("/trade")
	tradeG.GET("", trades.Current)
	tradeG.POST("", trades.Initiate)
	tradeG.POST("/accept", trades.Accept)
	tradeG.POST("/decline", trades.Decline)
	tradeG.POST("/cancel", trades.Cancel)
}
