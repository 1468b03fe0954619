package mysql

import (
	"context"
	"database/sql"
	"strings"
)

// detectServer names the server flavor and version, e.g. "MariaDB 10.11.6".
func detectServer(ctx context.Context, db *sql.DB) (string, error) {
	var varName, comment string

	err := db.QueryRowContext(ctx, "SHOW VARIABLES LIKE 'version_comment'").Scan(&varName, &comment)
	if err != nil {
		return "", err
	}

	flavor := "MySQL"
	switch lower := strings.ToLower(comment); {
	case strings.Contains(lower, "mariadb"):
		flavor = "MariaDB"
	case strings.Contains(lower, "tidb"):
		flavor = "TiDB"
	}

	if version := getVersion(ctx, db); version != "" {
		return flavor + " " + version, nil
	}
	return flavor, nil
}

func getVersion(ctx context.Context, db *sql.DB) string {
	var version string
	_ = db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	if idx := strings.Index(version, "-"); idx > 0 {
		version = version[:idx]
	}
	return version
}
