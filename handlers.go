package main

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/apperr"
	"github.com/muhammadolammi/polypopcareers/internal/intake"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
)

func (cfg *ServerConfig) now() time.Time {
	if cfg.Now != nil {
		return cfg.Now()
	}
	return time.Now()
}

func (cfg *ServerConfig) handleHome(c *gin.Context) {
	now := cfg.now()
	c.HTML(http.StatusOK, "home.html", HomePage{
		Company:   cfg.Env.CompanyName,
		Date:      now.Format("2006-01-02 15:04:05"),
		SystemID:  uuid.NewString(),
		PrivateIP: privateIP(),
		Year:      now.Year(),
	})
}

func (cfg *ServerConfig) handleCareersForm(c *gin.Context) {
	c.HTML(http.StatusOK, "careers.html", CareersPage{
		Company:   cfg.Env.CompanyName,
		MaxUpload: humanize.IBytes(uint64(cfg.Env.MaxUploadBytes)),
		Year:      cfg.now().Year(),
	})
}

func (cfg *ServerConfig) handleCareersSubmit(c *gin.Context) {
	requestID := c.GetString(requestIDKey)
	logger := cfg.Logger.With("request_id", requestID)
	maxFile := cfg.Env.MaxUploadBytes

	if c.Request.ContentLength > maxFile+formOverhead {
		cfg.renderError(c, logger, apperr.New(apperr.KindFileTooLarge,
			"the resume must be "+humanize.IBytes(uint64(maxFile))+" or smaller"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFile+formOverhead)

	sub, err := intake.FromRequest(c.Request, multipartMemory, intake.Options{MaxFileBytes: maxFile})
	if form := c.Request.MultipartForm; form != nil {
		defer form.RemoveAll()
	}
	if err != nil {
		cfg.renderError(c, logger, err)
		return
	}
	defer sub.Close()

	receivedAt := cfg.now()
	stored, err := cfg.Store.Put(c.Request.Context(), storage.Object{
		Key:         storage.ResumeKey(sub.Name, sub.Resume.Filename, receivedAt),
		Body:        sub.Resume.Content,
		Size:        sub.Resume.Size,
		ContentType: sub.Resume.ContentType,
		Metadata:    resumeMetadata(sub),
	})
	if err != nil {
		cfg.renderError(c, logger, err)
		return
	}
	logger.Info("resume stored",
		"key", stored.Key,
		"backend", stored.Backend,
		"size", humanize.IBytes(uint64(stored.Size)),
		"content_type", stored.ContentType)

	cfg.Dispatcher.Enqueue(newApplicationEvent(sub, stored, requestID, receivedAt))

	c.HTML(http.StatusCreated, "confirmation.html", ConfirmationPage{
		Company:  cfg.Env.CompanyName,
		Name:     sub.Name,
		Position: sub.Position,
		Key:      stored.Key,
		Year:     receivedAt.Year(),
	})
}

func (cfg *ServerConfig) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": cfg.Store.Name()})
}

func (cfg *ServerConfig) handleNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", ErrorPage{
		Company: cfg.Env.CompanyName,
		Status:  http.StatusNotFound,
		Title:   "Page not found",
		Message: "The page you are looking for does not exist.",
		Year:    cfg.now().Year(),
	})
}

// renderError logs err and renders the error page. Only validation messages
// reach the applicant; storage and auth causes stay in the logs.
func (cfg *ServerConfig) renderError(c *gin.Context, logger *logging.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.StatusOf(err)
	page := ErrorPage{
		Company: cfg.Env.CompanyName,
		Status:  status,
		Year:    cfg.now().Year(),
	}

	switch kind.Category() {
	case apperr.CategoryValidation:
		logger.Warn("application rejected", "kind", kind, "err", err)
		page.Title = "Please check your application"
		if e, ok := apperr.As(err); ok {
			page.Message = e.Message
			page.Fields = e.Fields
		}
	case apperr.CategoryAuth:
		logger.Error("storage rejected the upload", "kind", kind, "err", err)
		page.Title = "We could not save your resume"
		page.Message = "Our storage service refused the upload. Please try again later."
	default:
		logger.Error("failed to store resume", "kind", kind, "err", err)
		page.Title = "We could not save your resume"
		page.Message = "Something went wrong on our side. Please try again later."
	}
	c.HTML(status, "error.html", page)
}
