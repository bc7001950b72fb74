package models

// AuthProvider 标识账户的创建来源。
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// User 代表系统中的用户。
// 关注关系不保存在用户记录上，而是由 follows 表推导。
type User struct {
	BaseModel
	Username     string       `gorm:"type:varchar(30);uniqueIndex;not null" json:"username"`
	FullName     string       `gorm:"type:varchar(100);not null" json:"fullName"`
	Email        string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string       `gorm:"type:varchar(255)" json:"-"` // 不暴露密码哈希
	Bio          string       `gorm:"type:text" json:"bio,omitempty"`
	Location     string       `gorm:"type:varchar(100)" json:"location,omitempty"`
	AvatarURL    string       `gorm:"type:varchar(500)" json:"profilePicture,omitempty"`
	CoverURL     string       `gorm:"type:varchar(500)" json:"coverImage,omitempty"`
	AuthProvider AuthProvider `gorm:"type:varchar(20);not null;default:'local'" json:"authProvider"`
}

// HasPassword reports whether the account can sign in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserBasicInfo holds minimal public information about a user.
// Used wherever another user is embedded in a response: request senders,
// post authors, likers.
type UserBasicInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"profilePicture,omitempty"`
}

// UserProfile is a user together with the derived follow lists.
type UserProfile struct {
	*User
	Followers      []uint `json:"followers"`
	Following      []uint `json:"following"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}
