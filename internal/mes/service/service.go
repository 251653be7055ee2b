package service

import (
	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Checklist  *ChecklistService
	Inspection *InspectionService
	WorkOrder  *WorkOrderService
	Report     *ReportService
	Attachment *AttachmentService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			// Log warning but continue without MinIO
			minioClient = nil
		}
	}

	checklistSvc := NewChecklistService(repos.Checklist, rdb)
	workOrderSvc := NewWorkOrderService(repos.WorkOrder, repos.ActivityLog)
	inspectionSvc := NewInspectionService(repos.Inspection, repos.Checklist, repos.WorkOrder)
	inspectionSvc.SetActivityLogRepo(repos.ActivityLog)

	return &Services{
		Checklist:  checklistSvc,
		Inspection: inspectionSvc,
		WorkOrder:  workOrderSvc,
		Report:     NewReportService(repos.Inspection),
		Attachment: NewAttachmentService(minioClient, cfg.MinIO.Bucket),
	}
}
