package core

// UserError records a per-user failure during a distillation run.
type UserError struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// DistillationRun summarizes one batch distillation invocation. It is never
// persisted; it is returned to the caller (typically a cron log).
type DistillationRun struct {
	// UsersProcessed counts every attempted user, including failures.
	UsersProcessed int         `json:"usersProcessed"`
	TotalInsights  int         `json:"totalInsights"`
	Errors         []UserError `json:"errors"`
}
