package cache

import (
	"fmt"
	"time"
)

const (
	MembershipKeyPrefix = "memberships:%d"
	CategoriesKey       = "categories:all"
)

const (
	MembershipTTL = 10 * time.Minute
	CategoriesTTL = 30 * time.Minute
)

func MembershipKey(userID uint) string {
	return fmt.Sprintf(MembershipKeyPrefix, userID)
}
