package main

import (
	appointmenthandler "clinic/internal/appointments/handler"
	appointmentrepo "clinic/internal/appointments/repository"
	appointmentservice "clinic/internal/appointments/service"
	appointmentvalidator "clinic/internal/appointments/validator"
	"clinic/internal/availability"
	availabilityhandler "clinic/internal/availability/handler"
	notifyhandler "clinic/internal/notify/handler"
	notifyrepo "clinic/internal/notify/repository"
	notifyservice "clinic/internal/notify/service"
	schedulehandler "clinic/internal/schedules/handler"
	schedulerepo "clinic/internal/schedules/repository"
	scheduleservice "clinic/internal/schedules/service"
	schedulevalidator "clinic/internal/schedules/validator"
	waitlisthandler "clinic/internal/waitlist/handler"
	waitlistrepo "clinic/internal/waitlist/repository"
	waitlistservice "clinic/internal/waitlist/service"
	"clinic/pkg/app"
	"clinic/pkg/config"
	"clinic/pkg/contracts"
	"clinic/pkg/kafka"
	kafka_config "clinic/pkg/kafka/config"
)

const ServiceName = "clinic"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg := kafka_config.Load()
	appointmentsProducer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.AppointmentsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create appointments producer", "error", err)
	}
	defer appointmentsProducer.Close()

	notificationsProducer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.NotificationsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create notifications producer", "error", err)
	}
	defer notificationsProducer.Close()

	cfg.Log.Info("Starting clinic service")
	handlers := initHandlers(cfg, appointmentsProducer, notificationsProducer)

	serverApp := app.NewApplication()
	serverApp.SetBroker(appointmentsProducer)
	serverApp.SetApp(cfg, handlers...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, appointmentsProducer, notificationsProducer *kafka.Producer) []contracts.Handler {
	templateRepo := schedulerepo.NewMongoTemplateRepository(cfg)
	appointmentRepo := appointmentrepo.NewMongoAppointmentRepository(cfg)
	slotLockRepo := appointmentrepo.NewSlotLockRepository(cfg)
	waitlistRepo := waitlistrepo.NewMongoWaitlistRepository(cfg)
	notificationRepo := notifyrepo.NewMongoNotificationRepository(cfg)

	templateService := scheduleservice.NewTemplateService(
		templateRepo,
		schedulevalidator.NewTemplateValidator(cfg.Log),
		cfg,
	)
	availabilityService := availability.NewService(templateRepo, appointmentRepo, cfg)
	notificationService := notifyservice.NewNotificationService(
		notificationRepo,
		notificationsProducer,
		cfg,
		cfg.Log,
	)
	appointmentService := appointmentservice.NewAppointmentService(
		appointmentRepo,
		slotLockRepo,
		availabilityService,
		waitlistRepo,
		notificationService,
		appointmentsProducer,
		appointmentvalidator.NewAppointmentValidator(cfg.Log),
		cfg,
	)
	waitlistService := waitlistservice.NewWaitlistService(waitlistRepo, cfg.Log)

	cfg.Log.Info("Clinic service initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		schedulehandler.NewTemplateHandler(templateService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		appointmenthandler.NewAppointmentHandler(appointmentService, cfg.Log),
		waitlisthandler.NewWaitlistHandler(waitlistService, cfg.Log),
		notifyhandler.NewNotificationHandler(notificationService, cfg.Log),
	}
}
