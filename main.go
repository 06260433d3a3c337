package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Apetorku/StayGlobal-sub001/paystack"
	"github.com/Apetorku/StayGlobal-sub001/routes"
	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeMedia()
	storage.InitializeRedis()

	services.ActiveGateway = paystack.NewClient()
	services.ActiveVerifier = services.SimulatedVerifier{}

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT Verifiers
	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/register-phone", routes.RegisterPhone)
		user.Post("/login-phone", routes.LoginPhone)
		user.Post("/facebook", routes.FacebookLoginOrSignUp)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		user.Get("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUser)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.UpdateUserProfile)
		user.Get("/{id}/apartments/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetUserSavedApartments)
		user.Patch("/{id}/apartments/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterUserSavedApartments)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
		user.Post("/verification", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.SubmitVerification)
		user.Get("/verification/status", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetVerificationStatus)
	}

	apartment := app.Party("/api/apartment")
	{
		apartment.Get("/search", routes.SearchApartments)
		apartment.Get("/{id:uint}", routes.GetApartment)
		apartment.Post("/", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CreateApartment)
		apartment.Patch("/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.UpdateApartment)
		apartment.Get("/mine", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetApartmentsByOwner)
		apartment.Delete("/image", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.DeleteApartmentImage)
	}

	booking := app.Party("/api/booking")
	{
		booking.Post("/apartment/{id:uint}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CreateBooking)
		booking.Get("/mine", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUserBookings)
		booking.Get("/host", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetOwnerBookings)
		booking.Get("/ticket/{code}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetBookingByTicket)
		booking.Post("/checkin", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CheckInByTicket)
		booking.Post("/{id:uint}/checkin", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CheckInBooking)
		booking.Post("/{id:uint}/checkout", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.SelfCheckout)
		booking.Post("/{id:uint}/cancel", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.CancelBooking)
		booking.Post("/{id:uint}/no-show", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.MarkNoShow)
		// Scheduler endpoints
		booking.Post("/auto-checkout", routes.AutoCheckout)
		booking.Post("/expire-pending", routes.ExpireUnpaidBookings)
	}

	payment := app.Party("/api/payment")
	{
		payment.Post("/initialize", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.InitializePayment)
		payment.Get("/verify/{reference}", accessTokenVerifierMiddleware, routes.VerifyPayment)
		payment.Post("/webhook", routes.PaystackWebhook)
		payment.Post("/account", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.RegisterPaymentAccount)
		payment.Get("/account", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetPaymentAccount)
	}

	chat := app.Party("/api/chat")
	{
		chat.Get("/booking/{id:uint}/messages", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.ListBookingMessages)
		chat.Post("/booking/{id:uint}/messages", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.SendBookingMessage)
		chat.Post("/booking/{id:uint}/read", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.MarkBookingMessagesRead)
	}

	notifications := app.Party("/api/notifications")
	{
		notifications.Get("/", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.ListNotifications)
		notifications.Post("/{id:uint}/read", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.MarkNotificationRead)
		notifications.Post("/read-all", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.MarkAllNotificationsRead)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", routes.AdminListUsers)
		admin.Get("/users/{id:uint}", routes.AdminGetUser)
		admin.Patch("/users/{id:uint}/role", routes.AdminChangeUserRole)
		admin.Patch("/users/{id:uint}/status", routes.AdminSetUserStatus)
		admin.Get("/bookings", routes.AdminListBookings)
		admin.Get("/bookings/{id:uint}", routes.AdminGetBooking)
		admin.Post("/bookings/{id:uint}/cancel", routes.AdminCancelBooking)
		admin.Get("/verifications", routes.AdminListVerifications)
		admin.Get("/verifications/{id:uint}", routes.AdminGetVerification)
		admin.Post("/verifications/{id:uint}/review", routes.AdminReviewVerification)
		admin.Patch("/payment-accounts/{id:uint}/verify", routes.AdminVerifyPaymentAccount)
		admin.Get("/commissions", routes.AdminListCommissions)
		admin.Patch("/commissions/{id:uint}/status", routes.AdminUpdateCommissionStatus)
		admin.Get("/stats", routes.AdminStats)
		admin.Get("/activity", routes.AdminActivity)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
