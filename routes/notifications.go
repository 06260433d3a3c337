package routes

import (
	"time"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

func ListNotifications(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	unreadOnly := ctx.URLParamBoolDefault("unread", false)
	limit := ctx.URLParamIntDefault("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := storage.DB.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	result := query.Order("created_at DESC").Limit(limit).Find(&notifications)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var unreadCount int64
	storage.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unreadCount)

	ctx.JSON(iris.Map{
		"notifications": notifications,
		"unreadCount":   unreadCount,
	})
}

func MarkNotificationRead(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	notificationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid notification ID.", ctx)
		return
	}

	now := time.Now()
	result := storage.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

func MarkAllNotificationsRead(ctx iris.Context) {
	userID := ctx.Values().Get("userID").(uint)

	now := time.Now()
	result := storage.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"marked": result.RowsAffected})
}
