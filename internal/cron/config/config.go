package cron_config

type Config struct {
	// Heartbeat log line, every minute. Empty disables it.
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Import cycle, every five minutes
	CronScheduleImport string `env:"CRON_SCHEDULE_IMPORT" envDefault:"0 */5 * * * *"`
	// Retry of failed uploads, hourly. Empty disables it.
	CronScheduleResync string `env:"CRON_SCHEDULE_RESYNC" envDefault:"0 30 * * * *"`
	ResyncLimit        int    `env:"CRON_RESYNC_LIMIT" envDefault:"100"`
	// Kubernetes lease based leader election
	LeaderElection bool   `env:"CRON_LEADER_ELECTION" envDefault:"false"`
	LeaseName      string `env:"CRON_LEASE_NAME" envDefault:"lexsync-cron-leader"`
}
