package dynamo

// DynamoDB attribute names used in keys and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldTaskID    = "task_id"
	fieldTokenID   = "token_id"
	fieldEmail     = "email"
	fieldPhone     = "phone_number"
	fieldSlug      = "slug"
	fieldOwnerID   = "owner_id"
	fieldAssignee  = "assignee_id"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"

	fieldOTPSecret     = "otp_secret"
	fieldOTPExpiresAt  = "otp_expires_at"
	fieldOTPVerifiedAt = "otp_verified_at"
	fieldOTPAttempts   = "otp_attempts"
)

// GSI names.
const (
	indexEmail   = "email-index"
	indexPhone   = "phone_number-index"
	indexSlug    = "slug-index"
	indexOwner   = "owner_id-index"
	indexTokenBy = "user_id-index"
)
