package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/service"
	"github.com/Freeeeeet/servicejobs/internal/timezone"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	seriesService     *service.SeriesService
	occurrenceService *service.OccurrenceService
	previewer         *recurrence.Previewer
	tz                *timezone.Converter
	isAdmin           func(telegramID int64) bool
	loc               *time.Location
	logger            *zap.Logger
	now               func() time.Time
}

// NewHandlers создаёт новый обработчик команд. loc - зона, в которой показываются даты
func NewHandlers(
	seriesService *service.SeriesService,
	occurrenceService *service.OccurrenceService,
	previewer *recurrence.Previewer,
	tz *timezone.Converter,
	isAdmin func(telegramID int64) bool,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		seriesService:     seriesService,
		occurrenceService: occurrenceService,
		previewer:         previewer,
		tz:                tz,
		isAdmin:           isAdmin,
		loc:               loc,
		logger:            logger,
		now:               time.Now,
	}
}
