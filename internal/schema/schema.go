// Package schema holds the default DDL and view definitions and the
// catalog of objects they create.
package schema

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"churndb/internal/common"
	apperrors "churndb/pkg/errors"
)

//go:embed sql/*.sql
var files embed.FS

// Default file names
const (
	SchemaFile = "db_init.sql"
	ViewsFile  = "feature_extraction.sql"
)

// ObjectType represents the type of database object
type ObjectType string

const (
	ObjectTypeTable ObjectType = "TABLE"
	ObjectTypeView  ObjectType = "VIEW"
)

// Object is a table or view owned by the project
type Object struct {
	Name string
	Type ObjectType
}

// Table names, parent first
const (
	TableCustomers            = "customers"
	TableServiceSubscriptions = "service_subscriptions"
	TableBillingInfo          = "billing_info"
	TableChurnFeatures        = "churn_features"
)

// View names
const (
	ViewCompleteProfile   = "customer_complete_profile"
	ViewChurnStatistics   = "churn_statistics"
	ViewHighRiskCustomers = "high_risk_customers"
	ViewMLFeatureMatrix   = "ml_feature_matrix"
	ViewAtRiskCustomers   = "at_risk_customers"
)

// Tables lists tables in creation order
var Tables = []string{
	TableCustomers,
	TableServiceSubscriptions,
	TableBillingInfo,
	TableChurnFeatures,
}

// ChildTables lists tables keyed by a foreign key to customers
var ChildTables = Tables[1:]

// Views lists views in creation order
var Views = []string{
	ViewCompleteProfile,
	ViewChurnStatistics,
	ViewHighRiskCustomers,
	ViewMLFeatureMatrix,
	ViewAtRiskCustomers,
}

// DropOrder returns every object in the order it can be dropped: views
// that read other views first, then child tables, then customers
func DropOrder() []Object {
	objects := []Object{
		{Name: ViewAtRiskCustomers, Type: ObjectTypeView},
		{Name: ViewMLFeatureMatrix, Type: ObjectTypeView},
		{Name: ViewHighRiskCustomers, Type: ObjectTypeView},
		{Name: ViewChurnStatistics, Type: ObjectTypeView},
		{Name: ViewCompleteProfile, Type: ObjectTypeView},
	}
	for i := len(Tables) - 1; i >= 0; i-- {
		objects = append(objects, Object{Name: Tables[i], Type: ObjectTypeTable})
	}
	return objects
}

// SQL returns the embedded default file with the given name
func SQL(name string) (string, error) {
	data, err := files.ReadFile("sql/" + name)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCodeFileNotFound, fmt.Sprintf("No built-in SQL file named %s", name))
	}
	return string(data), nil
}

// WriteResult reports what WriteDefaults did with one file
type WriteResult struct {
	Path    string
	Written bool
}

// WriteDefaults writes the built-in SQL files into dir. Existing files are
// left alone unless overwrite is set.
func WriteDefaults(dir string, overwrite bool) ([]WriteResult, error) {
	if err := common.EnsureDirs(dir); err != nil {
		return nil, apperrors.FileError(dir, err)
	}

	var results []WriteResult
	for _, name := range []string{SchemaFile, ViewsFile} {
		path, err := common.ValidatePath(filepath.Join(dir, name), dir)
		if err != nil {
			return results, apperrors.Wrap(err, apperrors.ErrCodeFilePermission, "Refusing to write outside the SQL directory")
		}

		if common.FileExists(path) && !overwrite {
			results = append(results, WriteResult{Path: path})
			continue
		}

		content, err := SQL(name)
		if err != nil {
			return results, err
		}
		if err := os.WriteFile(path, []byte(content), common.FilePermissionNormal); err != nil {
			return results, apperrors.FileError(path, err)
		}
		results = append(results, WriteResult{Path: path, Written: true})
	}
	return results, nil
}
