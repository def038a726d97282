package models

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate 在啟動時建立或更新所有資料表
func AutoMigrate(db *gorm.DB) error {
	const op = "AutoMigrate"
	err := db.AutoMigrate(
		&User{},
		&Account{},
		&Item{},
		&Bid{},
		&ChatMessage{},
		&Setting{},
		&Image{},
	)
	if err != nil {
		return fmt.Errorf("[%s] Fail to migrate schema, err=%w", op, err)
	}
	return nil
}
