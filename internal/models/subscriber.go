package models

// Newsletter topics a subscriber can opt into.
const (
	TopicBlogPosts = "blog_posts"
	TopicProjects  = "projects"
)

// SubscriberModel is a newsletter subscriber.
//
// Email is stored lowercased and is the natural key. IsConfirmed flips to
// true once the holder has proven control of the mailbox via a confirmation
// link; IsActive flips to false on unsubscribe. An unsubscribed row is kept
// as a suppression record rather than deleted, so a later resubscribe cannot
// silently bypass the earlier opt-out without a fresh confirmation.
type SubscriberModel struct {
	Base
	Email          string `json:"email"           gorm:"uniqueIndex;not null"`
	WantsBlogPosts bool   `json:"blog_posts"      gorm:"column:wants_blog_posts;default:false"`
	WantsProjects  bool   `json:"projects"        gorm:"column:wants_projects;default:false"`
	IsConfirmed    bool   `json:"is_confirmed"    gorm:"default:false"`
	IsActive       bool   `json:"is_active"       gorm:"default:true"`
}

func (SubscriberModel) TableName() string { return "subscribers" }

// WantsTopic reports whether the subscriber opted into the given topic.
func (s *SubscriberModel) WantsTopic(topic string) bool {
	switch topic {
	case TopicBlogPosts:
		return s.WantsBlogPosts
	case TopicProjects:
		return s.WantsProjects
	default:
		return false
	}
}

// Notifiable reports whether the subscriber may receive a notification for
// the given topic: confirmed, active and opted in. IsActive gating takes
// precedence over preference flags.
func (s *SubscriberModel) Notifiable(topic string) bool {
	return s.IsConfirmed && s.IsActive && s.WantsTopic(topic)
}
