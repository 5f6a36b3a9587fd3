package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/prismaschema/internal/printer"
	"github.com/tordrt/prismaschema/internal/schema"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func shopTables() []Table {
	return []Table{
		{
			Name: "customers",
			Columns: []Column{
				{Name: "id", Type: "integer", Default: strPtr("nextval('customers_id_seq'::regclass)"), AutoIncrement: true},
				{Name: "email", Type: "varchar", MaxLength: intPtr(255), IsUnique: true},
				{Name: "nickname", Type: "text", Nullable: true},
				{Name: "created_at", Type: "timestamptz", Default: strPtr("now()")},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: "customer_tokens",
			Columns: []Column{
				{Name: "id", Type: "uuid", Default: strPtr("gen_random_uuid()")},
				{Name: "customer_id", Type: "integer"},
				{Name: "token", Type: "text"},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKey{{
				Name:              "customer_tokens_customer_id_fkey",
				Columns:           []string{"customer_id"},
				ReferencedTable:   "customers",
				ReferencedColumns: []string{"id"},
				OnDelete:          "CASCADE",
				OnUpdate:          "NO ACTION",
			}},
			Indexes: []Index{{Name: "customer_tokens_customer_id_idx", Columns: []string{"customer_id"}}},
		},
	}
}

func TestModelName(t *testing.T) {
	tests := map[string]string{
		"customers":       "Customer",
		"customer_tokens": "CustomerToken",
		"Customer":        "Customer",
		"categories":      "Category",
	}
	for table, want := range tests {
		assert.Equal(t, want, ModelName(table), table)
	}
}

func TestConvert_Shop(t *testing.T) {
	entities, err := Convert(schema.PostgreSQL, shopTables())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	customer := entities[0]
	assert.Equal(t, "Customer", customer.Name)
	assert.Equal(t, "customers", customer.Map)

	id, ok := customer.Field("id")
	require.True(t, ok)
	assert.True(t, id.Scalar.IsID)
	assert.False(t, id.Scalar.IsUnique)
	assert.Equal(t, schema.Call(schema.AutoIncrement), id.Scalar.Default)

	email, _ := customer.Field("email")
	assert.True(t, email.Scalar.IsUnique)
	assert.Equal(t, &schema.NativeMapping{Name: "VarChar", Arguments: []any{255}}, email.NativeMapping)

	nickname, _ := customer.Field("nickname")
	assert.False(t, nickname.IsRequired)

	created, _ := customer.Field("created_at")
	assert.Equal(t, schema.DateTime, created.Scalar.Type)
	assert.Equal(t, schema.Call(schema.Now), created.Scalar.Default)

	tokens, ok := customer.Field("customerTokens")
	require.True(t, ok)
	assert.Equal(t, "CustomerToken", tokens.Relation.Type)
	assert.True(t, tokens.IsList)
	assert.Empty(t, tokens.Relation.RelationName)

	token := entities[1]
	assert.Equal(t, "CustomerToken", token.Name)
	assert.Equal(t, []schema.Index{{Fields: []schema.IndexField{{Name: "customer_id"}}}}, token.Indexes)

	tokenID, _ := token.Field("id")
	assert.Equal(t, schema.Call(schema.UUID), tokenID.Scalar.Default)
	assert.Equal(t, &schema.NativeMapping{Name: "Uuid"}, tokenID.NativeMapping)

	fk, _ := token.Field("customer_id")
	assert.True(t, fk.Scalar.IsForeignKey)

	ref, ok := token.Field("customer")
	require.True(t, ok)
	assert.True(t, ref.IsRequired)
	assert.Equal(t, []string{"customer_id"}, ref.Relation.RelationToFields)
	assert.Equal(t, []string{"id"}, ref.Relation.RelationReferences)
	assert.Equal(t, schema.Cascade, ref.Relation.OnDelete)
	assert.Equal(t, schema.NoneAction, ref.Relation.OnUpdate)
}

func TestConvert_Printable(t *testing.T) {
	entities, err := Convert(schema.PostgreSQL, shopTables())
	require.NoError(t, err)

	ds, err := schema.NewDataSource(schema.DataSourceOptions{Name: "db", Provider: schema.PostgreSQL, URL: schema.EnvURL("DATABASE_URL")})
	require.NoError(t, err)
	s, err := schema.NewSchema(schema.SchemaOptions{DataSource: &ds, Models: entities})
	require.NoError(t, err)

	text, err := printer.Render(&s)
	require.NoError(t, err)
	assert.Contains(t, text, "\nid Int @id @default(autoincrement())\n")
	assert.Contains(t, text, "\nemail String @unique @db.VarChar(255)\n")
	assert.Contains(t, text, "\ncustomerTokens CustomerToken[]\n")
	assert.Contains(t, text, "\ncustomer Customer @relation(fields: [customer_id], references: [id], onDelete: Cascade)\n")
	assert.Contains(t, text, `@@map("customer_tokens")`)
}

func TestConvert_AmbiguousRelations(t *testing.T) {
	tables := []Table{
		{
			Name:       "users",
			Columns:    []Column{{Name: "id", Type: "integer"}, {Name: "manager_id", Type: "integer", Nullable: true}},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKey{{
				Name: "users_manager_fk", Columns: []string{"manager_id"},
				ReferencedTable: "users", ReferencedColumns: []string{"id"}, OnDelete: "SET NULL",
			}},
		},
		{
			Name: "transfers",
			Columns: []Column{
				{Name: "id", Type: "integer"},
				{Name: "sender_id", Type: "integer"},
				{Name: "receiver_id", Type: "integer"},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Name: "sender_fk", Columns: []string{"sender_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}},
				{Name: "receiver_fk", Columns: []string{"receiver_id"}, ReferencedTable: "users", ReferencedColumns: []string{"id"}},
			},
		},
	}

	entities, err := Convert(schema.PostgreSQL, tables)
	require.NoError(t, err)
	user, transfer := entities[0], entities[1]

	manager, ok := user.Field("manager")
	require.True(t, ok)
	assert.Equal(t, "users_manager_idTousers", manager.Relation.RelationName)
	assert.False(t, manager.IsRequired)
	assert.Equal(t, schema.SetNull, manager.Relation.OnDelete)

	reports, ok := user.Field("usersByManagerId")
	require.True(t, ok)
	assert.Equal(t, "users_manager_idTousers", reports.Relation.RelationName)
	assert.True(t, reports.IsList)

	sender, ok := transfer.Field("sender")
	require.True(t, ok)
	assert.Equal(t, "transfers_sender_idTousers", sender.Relation.RelationName)
	receiver, ok := transfer.Field("receiver")
	require.True(t, ok)
	assert.Equal(t, "transfers_receiver_idTousers", receiver.Relation.RelationName)

	sent, ok := user.Field("transfersBySenderId")
	require.True(t, ok)
	assert.Equal(t, "Transfer", sent.Relation.Type)
	_, ok = user.Field("transfersByReceiverId")
	assert.True(t, ok)
}

func TestConvert_KeysAndIndexes(t *testing.T) {
	tables := []Table{
		{
			Name:       "profiles",
			Columns:    []Column{{Name: "id", Type: "integer"}, {Name: "account_id", Type: "integer"}},
			PrimaryKey: []string{"id"},
		},
		{
			Name: "memberships",
			Columns: []Column{
				{Name: "org_id", Type: "integer"},
				{Name: "user_id", Type: "integer"},
				{Name: "role", Type: "text"},
				{Name: "slug", Type: "text"},
			},
			PrimaryKey: []string{"org_id", "user_id"},
			Indexes: []Index{
				{Name: "memberships_role_slug_key", Unique: true, Columns: []string{"role", "slug"}},
				{Name: "memberships_slug_key", Unique: true, Columns: []string{"slug"}},
			},
		},
		{
			Name:       "settings",
			Columns:    []Column{{Name: "id", Type: "integer"}, {Name: "profile_id", Type: "integer", IsUnique: true}},
			PrimaryKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Name: "settings_profile_fk", Columns: []string{"profile_id"}, ReferencedTable: "profiles", ReferencedColumns: []string{"id"}},
				{Name: "settings_missing_fk", Columns: []string{"id"}, ReferencedTable: "archived", ReferencedColumns: []string{"id"}},
			},
		},
	}

	entities, err := Convert(schema.PostgreSQL, tables)
	require.NoError(t, err)
	profile, membership, setting := entities[0], entities[1], entities[2]

	assert.Equal(t, []schema.UniqueIndex{
		{Fields: []schema.IndexField{{Name: "org_id"}, {Name: "user_id"}}},
		{Name: "memberships_role_slug_key", Fields: []schema.IndexField{{Name: "role"}, {Name: "slug"}}},
	}, membership.UniqueIndexes)
	orgID, _ := membership.Field("org_id")
	assert.False(t, orgID.Scalar.IsID)
	slug, _ := membership.Field("slug")
	assert.True(t, slug.Scalar.IsUnique)

	back, ok := profile.Field("setting")
	require.True(t, ok, "a unique foreign key gives a one-to-one back relation")
	assert.False(t, back.IsList)
	assert.False(t, back.IsRequired)

	_, ok = setting.Field("archived")
	assert.False(t, ok, "foreign keys to unknown tables get no relation field")
	id, _ := setting.Field("id")
	assert.False(t, id.Scalar.IsForeignKey)
}

func TestConvert_ResolvesImplicitReferences(t *testing.T) {
	tables := []Table{
		{Name: "authors", Columns: []Column{{Name: "id", Type: "integer"}}, PrimaryKey: []string{"id"}},
		{
			Name:        "posts",
			Columns:     []Column{{Name: "id", Type: "integer"}, {Name: "author", Type: "integer"}},
			PrimaryKey:  []string{"id"},
			ForeignKeys: []ForeignKey{{Name: "posts_0", Columns: []string{"author"}, ReferencedTable: "authors", ReferencedColumns: []string{""}}},
		},
	}

	entities, err := Convert(schema.SQLite, tables)
	require.NoError(t, err)

	ref, ok := entities[1].Field("author2")
	require.True(t, ok, "relation names avoid column names")
	assert.Equal(t, []string{"id"}, ref.Relation.RelationReferences)
}

func TestConvert_DuplicateModelNames(t *testing.T) {
	tables := []Table{
		{Name: "user", Columns: []Column{{Name: "id", Type: "integer"}}},
		{Name: "users", Columns: []Column{{Name: "id", Type: "integer"}}},
	}

	entities, err := Convert(schema.PostgreSQL, tables)
	require.NoError(t, err)
	assert.Equal(t, "User", entities[0].Name)
	assert.Equal(t, "Users", entities[1].Name)
	assert.Equal(t, "users", entities[1].Map)
}
