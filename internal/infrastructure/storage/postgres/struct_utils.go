package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the column names declared in a struct's "db"
// tags, walking embedded structs such as entity.Catalog. Repositories
// call it once at construction, so the reflection cost is paid once.
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			cols = append(cols, columnsOf(f.Type)...)
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
			cols = append(cols, tag)
		}
	}
	return cols
}

type fieldInfo struct {
	index int
	dbTag string
}

type typeMetadata struct {
	fields          []fieldInfo
	embeddedIndices []int
}

// typeCache memoizes per-type field layouts. StructToMap runs on every
// insert and update, so only the first call per type reflects over tags.
var typeCache sync.Map // map[reflect.Type]*typeMetadata

func metadataFor(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				meta.embeddedIndices = append(meta.embeddedIndices, i)
				continue
			}
			if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
				meta.fields = append(meta.fields, fieldInfo{index: i, dbTag: tag})
			}
		}
	}
	typeCache.Store(t, meta)
	return meta
}

// StructToMap flattens a tagged struct into column-to-value pairs for
// squirrel insert and update builders. Embedded structs merge into the
// same map.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, fi := range meta.fields {
		res[fi.dbTag] = rv.Field(fi.index).Interface()
	}
	for _, i := range meta.embeddedIndices {
		for k, val := range StructToMap(rv.Field(i).Interface()) {
			res[k] = val
		}
	}
	return res
}
