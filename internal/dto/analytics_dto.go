package dto

// TenantAnalytics summarizes upload activity for one tenant.
type TenantAnalytics struct {
	TotalUploads     int64 `json:"total_uploads"`
	UniqueEmails     int64 `json:"unique_emails"`
	UniqueIPs        int64 `json:"unique_ips"`
	UploadsWithEmail int64 `json:"uploads_with_email"`
	UploadsWithIP    int64 `json:"uploads_with_ip"`
}
