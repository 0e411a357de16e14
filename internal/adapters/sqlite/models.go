package sqlite

import "time"

type userModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (userModel) TableName() string { return "users" }

type cabinetModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	OwnerID     string    `gorm:"column:owner_id;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (cabinetModel) TableName() string { return "cabinets" }

type memberModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CabinetID string    `gorm:"column:cabinet_id;not null"`
	UserID    string    `gorm:"column:user_id;not null"`
	Role      string    `gorm:"column:role;not null"`
	IsOwner   bool      `gorm:"column:is_owner;not null"`
	JoinedAt  time.Time `gorm:"column:joined_at;not null"`
}

func (memberModel) TableName() string { return "cabinet_members" }

type memberPermissionModel struct {
	MemberID     string `gorm:"column:member_id;not null"`
	PermissionID string `gorm:"column:permission_id;not null"`
}

func (memberPermissionModel) TableName() string { return "member_permissions" }

type permissionModel struct {
	ID          string `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name;not null;uniqueIndex"`
	Description string `gorm:"column:description"`
	Category    string `gorm:"column:category;not null"`
	IsActive    bool   `gorm:"column:is_active;not null"`
}

func (permissionModel) TableName() string { return "permissions" }

type auditLogModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      *string   `gorm:"column:user_id"`
	CabinetID   *string   `gorm:"column:cabinet_id"`
	SubjectType string    `gorm:"column:subject_type;not null"`
	SubjectID   string    `gorm:"column:subject_id;not null"`
	Event       string    `gorm:"column:event;not null"`
	Description string    `gorm:"column:description"`
	IPAddress   string    `gorm:"column:ip_address"`
	UserAgent   string    `gorm:"column:user_agent"`
	Metadata    string    `gorm:"column:metadata"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

type auditQueueModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Payload       string     `gorm:"column:payload;not null"`
	Status        string     `gorm:"column:status;not null"`
	Attempts      int        `gorm:"column:attempts;not null"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null"`
	LastError     string     `gorm:"column:last_error"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	DeliveredAt   *time.Time `gorm:"column:delivered_at"`
}

func (auditQueueModel) TableName() string { return "audit_queue" }

type messageModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Level     string    `gorm:"column:level;not null"`
	Title     string    `gorm:"column:title;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (messageModel) TableName() string { return "messages" }

type messageRecipientModel struct {
	MessageID string     `gorm:"column:message_id;not null"`
	UserID    string     `gorm:"column:user_id;not null"`
	ReadAt    *time.Time `gorm:"column:read_at"`
}

func (messageRecipientModel) TableName() string { return "message_recipients" }
