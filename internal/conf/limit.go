package conf

import "fmt"

// Limit throttles tunnel clients. Zero values disable the corresponding limit.
type Limit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // per client IP
	Burst             int     `yaml:"burst"`
	UploadBps         int     `yaml:"upload_bps"`   // per session, bytes/s towards the target
	DownloadBps       int     `yaml:"download_bps"` // per session, bytes/s from the target
}

func (l *Limit) setDefaults() {
	if l.RequestsPerSecond > 0 && l.Burst == 0 {
		l.Burst = max(1, int(l.RequestsPerSecond*2))
	}
}

func (l *Limit) validate() []error {
	var errors []error

	if l.RequestsPerSecond < 0 {
		errors = append(errors, fmt.Errorf("limit requests_per_second must be >= 0"))
	}
	if l.Burst < 0 {
		errors = append(errors, fmt.Errorf("limit burst must be >= 0"))
	}
	if l.UploadBps < 0 || l.DownloadBps < 0 {
		errors = append(errors, fmt.Errorf("limit upload_bps and download_bps must be >= 0"))
	}
	return errors
}
