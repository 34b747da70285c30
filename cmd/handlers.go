package main

import (
	"io"
	"path/filepath"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/comms"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/promo"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func registerRoutes(app *fiber.App, container *Container) {
	v1 := app.Group("/api/v1")

	v1.Post("/otp/send", sendOTPHandler(container))
	v1.Post("/otp/verify", verifyOTPHandler(container))
	v1.Post("/messages/send", sendMessageHandler(container))
	v1.Post("/uploads", uploadHandler(container))
	v1.Post("/promo/campaigns", enqueueCampaignHandler(container))
	v1.Get("/promo/deliveries/:id", getDeliveryHandler(container))
}

type sendOTPRequest struct {
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode"`
	Purpose     string `json:"purpose"`
}

type verifyOTPRequest struct {
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"`
}

type sendMessageRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// resultStatus picks the HTTP status for a delivery result. The result
// body itself is always returned so clients can branch on errorType,
// rateLimited and expired.
func resultStatus(result *comms.Result) int {
	if result.Success {
		return fiber.StatusOK
	}
	switch result.ErrorType {
	case comms.ErrorValidation:
		return fiber.StatusBadRequest
	case comms.ErrorRateLimit:
		return fiber.StatusTooManyRequests
	case comms.ErrorAuthentication, comms.ErrorPolicyViolation:
		return fiber.StatusForbidden
	default:
		return fiber.StatusServiceUnavailable
	}
}

func sendOTPHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sendOTPRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		result := container.OTPService.SendOTP(c.Context(),
			req.CountryCode, req.Phone, otp.Purpose(req.Purpose))
		return c.Status(resultStatus(result)).JSON(result)
	}
}

func verifyOTPHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyOTPRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		result := container.OTPService.VerifyOTP(c.Context(),
			req.CountryCode, req.Phone, req.Code, otp.Purpose(req.Purpose))
		return c.Status(resultStatus(result)).JSON(result)
	}
}

func sendMessageHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.To == "" || req.Body == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Fields 'to' and 'body' are required")
		}

		result := container.Dispatcher.Send(c.Context(), comms.Message{
			To:      req.To,
			Subject: req.Subject,
			Body:    req.Body,
		})
		return c.Status(resultStatus(result)).JSON(result)
	}
}

type campaignRequest struct {
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
	MaxRetries int      `json:"maxRetries,omitempty"`
}

func enqueueCampaignHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req campaignRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		campaignID := uuid.NewString()
		ids, err := container.Promo.EnqueueCampaign(c.Context(), promo.Campaign{
			ID:         campaignID,
			Subject:    req.Subject,
			Body:       req.Body,
			Recipients: req.Recipients,
			MaxRetries: req.MaxRetries,
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"campaignId": campaignID,
			"deliveries": ids,
		})
	}
}

func getDeliveryHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		delivery, err := container.Promo.GetDelivery(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(delivery)
	}
}

// uploadHandler stores the uploaded file, then validates its size and
// content. Files that fail validation are deleted before responding.
func uploadHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing 'file' form field")
		}

		src, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Failed to open uploaded file")
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Failed to read uploaded file")
		}

		// Stored under a fresh name; the original name is only used for
		// extension checks.
		storedPath := container.FileSystem.Join("uploads",
			uuid.NewString()+filepath.Ext(fileHeader.Filename))
		if err := container.FileSystem.WriteFile(c.Context(), storedPath, data); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to store uploaded file")
		}

		if err := container.Validator.ValidateFileSize(c.Context(), storedPath,
			container.Config.Upload.MaxFileSize); err != nil {
			_ = container.FileSystem.DeleteFile(c.Context(), storedPath)
			return err
		}

		claimedMIME := fileHeader.Header.Get("Content-Type")
		result := container.Validator.ValidateUploadedFile(c.Context(),
			storedPath, fileHeader.Filename, claimedMIME)
		if !result.IsValid {
			_ = container.FileSystem.DeleteFile(c.Context(), storedPath)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":         result.Error,
				"securityIssue": result.SecurityIssue,
				"detectedType":  result.DetectedType,
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"path":          storedPath,
			"detectedType":  result.DetectedType,
			"securityIssue": result.SecurityIssue,
			"size":          fileHeader.Size,
		})
	}
}
