package database

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moyu-x/data-librarian/pkg/hasher"
	"github.com/moyu-x/data-librarian/pkg/logger"
)

// DigestEntry 一次扫描中摘要到首次出现路径的记录
type DigestEntry struct {
	ID        int64     `gorm:"primaryKey"`
	RunID     string    `gorm:"uniqueIndex:idx_run_digest;not null"`
	Digest    string    `gorm:"uniqueIndex:idx_run_digest;not null"`
	FilePath  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (DigestEntry) TableName() string {
	return "digest_index"
}

// Database 基于 SQLite 的摘要索引，用于超大目录树时把映射放到磁盘上
//
// 记录按 runID 隔离，Close 时删除本次扫描的记录。
type Database struct {
	db     *gorm.DB
	runID  string
	count  int
	closed bool
	mu     sync.Mutex
}

// migrate 建表，测试中可替换
var migrate = func(db *gorm.DB) error {
	return db.AutoMigrate(&DigestEntry{})
}

func NewDatabase(dbPath string, runID string) (*Database, error) {
	expandedPath, err := ExpandPath(dbPath)
	if err != nil {
		logger.Get().Error().Err(err).Msg("扩展数据库路径失败")
		return nil, err
	}

	logger.Get().Info().Msgf("初始化摘要索引数据库，路径: %s", expandedPath)

	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		logger.Get().Error().Err(err).Msgf("创建数据库目录失败: %s", filepath.Dir(expandedPath))
		return nil, err
	}

	dsn := expandedPath + "?_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Get().Error().Err(err).Msg("打开数据库连接失败")
		return nil, err
	}

	// 拿不到 *sql.DB 时也就没有可关闭的句柄
	sqlDB, err := db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := migrate(db); err != nil {
		logger.Get().Error().Err(err).Msg("创建数据库表失败")
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Get().Error().Err(closeErr).Msg("关闭数据库连接失败")
		}
		return nil, err
	}

	return &Database{db: db, runID: runID}, nil
}

// ExpandPath 展开以 ~/ 开头的路径
func ExpandPath(path string) (string, error) {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

func (d *Database) Claim(digest hasher.Digest, path string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := digest.String()

	var existing DigestEntry
	err := d.db.Where("run_id = ? AND digest = ?", d.runID, key).Take(&existing).Error
	if err == nil {
		logger.Get().Trace().Msgf("摘要已存在: %s -> %s", key, existing.FilePath)
		return existing.FilePath, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Get().Error().Err(err).Msgf("查询摘要失败: %s", key)
		return "", false, err
	}

	entry := &DigestEntry{
		RunID:     d.runID,
		Digest:    key,
		FilePath:  path,
		CreatedAt: time.Now(),
	}
	if err := d.db.Create(entry).Error; err != nil {
		logger.Get().Error().Err(err).Msgf("插入摘要失败: %s", path)
		return "", false, err
	}

	d.count++
	return path, false, nil
}

func (d *Database) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Close 删除本次扫描的记录并关闭连接，可重复调用
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if err := d.db.Where("run_id = ?", d.runID).Delete(&DigestEntry{}).Error; err != nil {
		logger.Get().Error().Err(err).Msgf("清理摘要索引失败: %s", d.runID)
	}

	logger.Get().Debug().Msg("关闭数据库连接")
	sqlDB, err := d.db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return err
	}
	return sqlDB.Close()
}
