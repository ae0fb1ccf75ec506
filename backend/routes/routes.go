package routes

import (
	"log"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"quizplatform/backend/cache"
	"quizplatform/backend/config"
	"quizplatform/backend/controllers"
	"quizplatform/backend/middleware"
	"quizplatform/backend/services"
	"quizplatform/backend/utils"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
	Cache  cache.Cache
	Mailer utils.Mailer
}

// NewApp builds the fiber app with its middleware and every route.
func NewApp(deps Deps) *fiber.App {
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.Mailer == nil {
		deps.Mailer = utils.LogMailer{Logger: deps.Logger}
	}

	app := fiber.New(fiber.Config{
		AppName:      "Quiz Platform",
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: utils.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(deps.Logger, false))

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Deps) {
	db, cfg := deps.DB, deps.Cfg

	coordinator := services.NewCoordinator(db, services.RetryPolicy{
		MaxAttempts:    cfg.SubmitMaxAttempts,
		InitialBackoff: cfg.SubmitBackoff,
		Multiplier:     services.DefaultRetryPolicy.Multiplier,
	}, deps.Logger)
	submissionService := services.NewSubmissionService(db, coordinator, deps.Logger)
	gradingService := services.NewGradingService(coordinator, deps.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware()
	quizTakerMiddleware := middleware.QuizTakerMiddleware(db)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	auth := app.Group("/api/auth", middleware.LoginRateLimit(cfg))
	auth.Post("/admin/login", authController.AdminLogin)
	auth.Post("/quiztaker/login", authController.QuizTakerLogin)
	auth.Post("/quiztaker/register", authController.Register)

	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)

	// Question sets
	questionSetsController := controllers.NewQuestionSetsController(db, cfg)
	questionSets := admin.Group("/question-sets")
	questionSets.Post("/", questionSetsController.CreateQuestionSet)
	questionSets.Get("/", questionSetsController.GetQuestionSets)
	questionSets.Get("/:id", questionSetsController.GetQuestionSet)
	questionSets.Put("/:id", questionSetsController.UpdateQuestionSet)
	questionSets.Delete("/:id", questionSetsController.DeleteQuestionSet)
	questionSets.Post("/:id/questions", questionSetsController.AddQuestion)
	questionSets.Put("/:id/questions/:questionId", questionSetsController.UpdateQuestion)
	questionSets.Delete("/:id/questions/:questionId", questionSetsController.DeleteQuestion)
	questionSets.Post("/:id/import", questionSetsController.ImportQuestions)

	// Quizzes
	quizzesController := controllers.NewQuizzesController(db, cfg, deps.Cache, deps.Logger)
	quizzes := admin.Group("/quizzes")
	quizzes.Post("/", quizzesController.CreateQuiz)
	quizzes.Get("/", quizzesController.GetQuizzes)
	quizzes.Get("/:id", quizzesController.GetQuiz)
	quizzes.Put("/:id/settings", quizzesController.UpdateQuizSettings)
	quizzes.Delete("/:id", quizzesController.DeleteQuiz)
	quizzes.Get("/:id/report", quizzesController.GetQuizReport)

	// Quiz takers
	quizTakersController := controllers.NewQuizTakersController(db, cfg, coordinator, deps.Mailer, deps.Logger)
	quizTakers := admin.Group("/quiztakers")
	quizTakers.Post("/", quizTakersController.CreateQuizTaker)
	quizTakers.Get("/", quizTakersController.GetQuizTakers)
	quizTakers.Post("/import", quizTakersController.ImportQuizTakers)
	quizTakers.Get("/:id", quizTakersController.GetQuizTaker)
	quizTakers.Put("/:id", quizTakersController.UpdateQuizTaker)
	quizTakers.Delete("/:id", quizTakersController.DeleteQuizTaker)
	quizTakers.Post("/:id/assign", quizTakersController.AssignQuiz)
	quizTakers.Delete("/:id/assign/:quizId", quizTakersController.UnassignQuiz)

	// Submissions
	submissionsController := controllers.NewSubmissionsController(db, cfg, gradingService)
	submissions := admin.Group("/submissions")
	submissions.Get("/", submissionsController.GetSubmissions)
	submissions.Get("/:id", submissionsController.GetSubmission)
	submissions.Put("/:id/grade", submissionsController.GradeSubmission)
	submissions.Post("/:id/regrade", submissionsController.Regrade)

	// Quiz taker routes
	quizController := controllers.NewQuizController(db, cfg, submissionService, deps.Cache, deps.Logger)
	quiz := app.Group("/api/quiz", authMiddleware, quizTakerMiddleware)
	quiz.Get("/me", quizController.GetProfile)
	quiz.Get("/available", quizController.GetAvailableQuizzes)
	quiz.Get("/:id", quizController.GetQuiz)
	quiz.Post("/:id/start", quizController.StartQuiz)
	quiz.Put("/:id/order", quizController.SetCustomOrder)
	quiz.Post("/:id/question-sets/:order/start", quizController.StartQuestionSet)
	quiz.Post("/:id/submit", quizController.Submit)
	quiz.Get("/:id/result", quizController.GetResult)

	app.Use(utils.RouteNotFound)
}
