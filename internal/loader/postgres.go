package loader

import (
	"context"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v4/stdlib" // register pgx driver
	"github.com/jmoiron/sqlx"

	"github.com/micrictor/fwrules/internal/rules"
)

const DEFAULT_TABLE = "firewall_rules"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type ruleRow struct {
	Direction string `db:"direction"`
	Protocol  string `db:"protocol"`
	Port      string `db:"port"`
	Address   string `db:"address"`
}

// Postgres reads rules from a table ordered by its position column.
type Postgres struct {
	DB    *sqlx.DB
	Table string
}

// OpenPostgres connects with the pgx driver.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{DB: db, Table: table}, nil
}

func (p *Postgres) table() string {
	if p.Table == "" {
		return DEFAULT_TABLE
	}
	return p.Table
}

func (p *Postgres) Load(ctx context.Context) ([]rules.Rule, error) {
	table := p.table()
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	query := fmt.Sprintf(`
	SELECT direction, protocol, port, address
	FROM %s
	ORDER BY position`, table)

	var rows []ruleRow
	if err := p.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select rules from %s: %w", table, err)
	}

	result := make([]rules.Rule, 0, len(rows))
	for _, row := range rows {
		result = append(result, rules.Rule{
			Direction: row.Direction,
			Protocol:  row.Protocol,
			Port:      row.Port,
			Address:   row.Address,
		})
	}
	return result, nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

func (p *Postgres) String() string {
	return "postgres:" + p.table()
}
