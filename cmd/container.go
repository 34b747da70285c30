// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, file storage,
// provider clients) and wires the delivery, OTP and upload components.
package main

import (
	"context"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms/commsconsole"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms/commsredis"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms/commsses"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms/commstwilio"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/config"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/fsx"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/fsx/fsxlocal"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/fsx/fsxs3"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/logx"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp/otpinfra"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp/otpsrv"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/promo"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/promo/promoredis"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/uploadx"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the composed services.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	S3Client   *s3.Client

	// Services
	OTPRepo    *otpinfra.PostgresRepository
	OTPService *otpsrv.Service
	Dispatcher comms.Channel
	Validator  *uploadx.Validator
	Promo      *promo.Dispatcher
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initServices()

	logx.Info("Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, file storage
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("Database connected")

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("Redis connected")

	c.initFileStorage()
}

func (c *Container) initFileStorage() {
	switch c.Config.Upload.StorageMode {
	case "s3":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
			awsConfig.WithRegion(c.Config.Upload.S3Region))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(awsCfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, c.Config.Upload.S3Bucket, "")
		logx.Infof("S3 file system configured (bucket: %s, region: %s)",
			c.Config.Upload.S3Bucket, c.Config.Upload.S3Region)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(c.Config.Upload.LocalDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("Local file system configured (path: %s)", c.Config.Upload.LocalDir)

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", c.Config.Upload.StorageMode)
	}
}

// ---------------------------------------------------------------------------
// Services — channels, dispatcher, OTP engine, upload validator
// ---------------------------------------------------------------------------

func (c *Container) initServices() {
	breaker := comms.NewCircuitBreaker(
		commsredis.NewRedisBreakerStore(c.Redis),
		c.Config.Comms.BreakerThreshold,
		c.Config.Comms.BreakerCooldown,
	)

	primary := c.buildPrimaryChannel(breaker)
	fallback := c.buildFallbackChannel(breaker)

	retryOpts := comms.RetryOptions{
		MaxRetries: c.Config.Comms.MaxRetries,
		Backoff:    c.Config.Comms.RetryBackoff,
	}
	c.Dispatcher = comms.NewDispatcher(primary, fallback, retryOpts)

	c.OTPRepo = otpinfra.NewPostgresRepository(c.DB)
	if err := c.OTPRepo.EnsureSchema(context.Background()); err != nil {
		logx.Fatalf("Failed to ensure OTP schema: %v", err)
	}

	c.OTPService = otpsrv.NewService(
		c.OTPRepo,
		otpinfra.NewRedisRateLimiter(c.Redis),
		c.Dispatcher,
		otpsrv.Options{
			Secret:      c.Config.OTP.Secret,
			Expiry:      c.Config.OTP.Expiry,
			MaxAttempts: c.Config.OTP.MaxAttempts,
			CodeLength:  c.Config.OTP.CodeLength,
			HourlyCap:   c.Config.OTP.HourlyCap,
			CapWindow:   c.Config.OTP.CapWindow,
			JWTSecret:   c.Config.OTP.JWTSecret,
			TokenTTL:    c.Config.OTP.TokenTTL,
		},
	)

	c.Validator = uploadx.NewValidator(c.FileSystem)

	c.Promo = promo.NewDispatcher(
		promoredis.NewRedisQueue(c.Redis),
		c.Dispatcher,
		promo.WithMaxRetries(c.Config.Comms.MaxRetries),
	)
}

// StartBackgroundServices runs the promo delivery workers and the OTP
// cleanup sweep until ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go func() {
		if err := c.Promo.Start(ctx); err != nil {
			logx.WithError(err).Error("Promo dispatcher stopped with error")
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.OTPRepo.DeleteExpired(ctx); err != nil {
					logx.WithError(err).Warn("OTP cleanup sweep failed")
				}
			}
		}
	}()
}

// buildPrimaryChannel selects the OTP delivery transport by provider.
// Console is the dev-mode transport: codes land in the server log.
func (c *Container) buildPrimaryChannel(breaker *comms.CircuitBreaker) comms.Channel {
	switch c.Config.Comms.Provider {
	case "twilio":
		client := commstwilio.NewRestClient(commstwilio.Config{
			AccountSID:   c.Config.Comms.Twilio.AccountSID,
			AuthToken:    c.Config.Comms.Twilio.AuthToken,
			WhatsAppFrom: c.Config.Comms.Twilio.WhatsAppFrom,
			SMSFrom:      c.Config.Comms.Twilio.SMSFrom,
		})
		logx.Info("WhatsApp channel configured (Twilio)")
		return commstwilio.NewWhatsAppChannel(client, c.Config.Comms.Twilio.WhatsAppFrom, breaker)

	case "ses":
		sesClient := c.buildSESClient()
		logx.Info("Email channel configured (SES)")
		return commsses.NewEmailChannel(sesClient,
			c.Config.Comms.Email.FromAddress, c.Config.Comms.Email.FromName, breaker)

	case "console":
		logx.Warn("Console channel configured: codes will be logged, not delivered")
		return commsconsole.NewConsoleChannel(comms.ServiceWhatsApp)

	default:
		logx.Fatalf("Unknown COMMS_PROVIDER: %s (use 'twilio', 'ses' or 'console')",
			c.Config.Comms.Provider)
		return nil
	}
}

// buildFallbackChannel builds the optional second channel tried when the
// primary fails terminally. Returns nil when fallback is disabled.
func (c *Container) buildFallbackChannel(breaker *comms.CircuitBreaker) comms.Channel {
	switch c.Config.Comms.FallbackChannel {
	case "sms":
		client := commstwilio.NewRestClient(commstwilio.Config{
			AccountSID: c.Config.Comms.Twilio.AccountSID,
			AuthToken:  c.Config.Comms.Twilio.AuthToken,
			SMSFrom:    c.Config.Comms.Twilio.SMSFrom,
		})
		logx.Info("SMS fallback channel configured")
		return commstwilio.NewSMSChannel(client, c.Config.Comms.Twilio.SMSFrom, breaker)

	case "email":
		sesClient := c.buildSESClient()
		logx.Info("Email fallback channel configured")
		return commsses.NewEmailChannel(sesClient,
			c.Config.Comms.Email.FromAddress, c.Config.Comms.Email.FromName, breaker)

	case "":
		return nil

	default:
		logx.Fatalf("Unknown COMMS_FALLBACK_CHANNEL: %s (use 'sms', 'email' or empty)",
			c.Config.Comms.FallbackChannel)
		return nil
	}
}

func (c *Container) buildSESClient() *ses.Client {
	awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
		awsConfig.WithRegion(c.Config.Comms.Email.AWSRegion))
	if err != nil {
		logx.Fatalf("Unable to load AWS SDK config: %v", err)
	}
	return ses.NewFromConfig(awsCfg)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}

	logx.Info("Cleanup complete")
}
