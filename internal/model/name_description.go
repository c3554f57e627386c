package model

// NameDescription 对应 name_descriptions 表，保存名字的来源与含义，供理由生成的 prompt 使用。
type NameDescription struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	Name         string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_name_population" json:"name"`
	Population   Population `gorm:"type:varchar(8);not null;uniqueIndex:idx_name_population" json:"population"`
	Origin       string     `gorm:"type:varchar(255)" json:"origin"`
	ShortMeaning string     `gorm:"type:varchar(255)" json:"shortMeaning"`
	Description  string     `gorm:"type:text" json:"description"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (NameDescription) TableName() string {
	return "name_descriptions"
}
