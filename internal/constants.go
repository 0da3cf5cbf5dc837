package internal

const (
	// 磁盘索引默认路径
	DefaultIndexPath = "~/.data-librarian/index.db"

	// 重复文件存放目录
	DefaultHoldingDir = "_DuplicateHoldingBin"

	// 日志文件名前缀，后面追加时间戳
	DefaultLogPrefix = "_duplicate_log"

	// 拆分默认大小上限（MB）
	DefaultSplitMaxMB = 25.0

	// 拆分默认起始页数
	DefaultSplitInitialPages = 10

	// 整理默认目标目录
	DefaultOrganizeDestination = "Organized_Books"

	// HTTP 控制面默认监听地址
	DefaultServerAddr = ":8000"

	// 哈希读取块大小
	HashBlockSize = 4096

	// 日志时间戳格式
	LogTimestampFormat = "01-02-2006_15-04-05"

	// 分隔线
	Separator = "----------------------------------------------------------------------------------------------------"
)

var (
	DefaultExcludedFolders = []string{DefaultHoldingDir, ".git"}
	DefaultExcludedFiles   = []string{".DS_Store", "Thumbs.db", "desktop.ini", "config.yaml"}
	DefaultIgnoreFiles     = []string{".DS_Store", "Thumbs.db", "desktop.ini", "config.json"}
)
