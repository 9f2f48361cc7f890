package symbols

// rule maps a parsed node kind to the Symbol kind it defines and the
// field name holding its identifier (spec §4.3 "Dispatch").
type rule struct {
	kind      Kind
	nameField string
}

// languageTable is the per-language (node_kind -> rule) table (spec §4.3
// "Per-language tables").
var languageTable = map[string]map[string]rule{
	"rust": {
		"function_item": {KindFunction, "name"},
		"struct_item":   {KindStruct, "name"},
		"enum_item":     {KindEnum, "name"},
		"trait_item":    {KindTrait, "name"},
		"type_item":     {KindType, "name"},
		"const_item":    {KindConstant, "name"},
		"static_item":   {KindVariable, "name"},
		"mod_item":      {KindModule, "name"},
	},
	"typescript": {
		"function_declaration":    {KindFunction, "name"},
		"class_declaration":       {KindClass, "name"},
		"interface_declaration":   {KindInterface, "name"},
		"type_alias_declaration":  {KindType, "name"},
		"enum_declaration":        {KindEnum, "name"},
		"method_definition":       {KindMethod, "name"},
		"variable_declarator":     {KindVariable, "name"},
	},
	"javascript": {
		"function_declaration": {KindFunction, "name"},
		"class_declaration":    {KindClass, "name"},
		"method_definition":    {KindMethod, "name"},
		"variable_declarator":  {KindVariable, "name"},
	},
	"python": {
		"function_definition": {KindFunction, "name"},
		"class_definition":    {KindClass, "name"},
	},
	"go": {
		"function_declaration": {KindFunction, "name"},
		"method_declaration":   {KindMethod, "name"},
		"type_spec":            {KindType, "name"},
	},
	"java": {
		"method_declaration":      {KindMethod, "name"},
		"class_declaration":       {KindClass, "name"},
		"interface_declaration":   {KindInterface, "name"},
		"enum_declaration":        {KindEnum, "name"},
		"constructor_declaration": {KindMethod, "name"},
		"field_declaration":       {KindProperty, "declarator"},
	},
	"ruby": {
		"method":           {KindMethod, "name"},
		"singleton_method": {KindMethod, "name"},
		"class":            {KindClass, "name"},
		"module":           {KindModule, "name"},
	},
	"c": {
		"function_definition":   {KindFunction, ""},
		"function_declarator":   {KindFunction, ""},
		"struct_specifier":      {KindStruct, "name"},
		"enum_specifier":        {KindEnum, "name"},
		"type_definition":       {KindType, "declarator"},
	},
	"cpp": {
		"function_definition":   {KindFunction, ""},
		"function_declarator":   {KindFunction, ""},
		"struct_specifier":      {KindStruct, "name"},
		"class_specifier":       {KindClass, "name"},
		"enum_specifier":        {KindEnum, "name"},
		"namespace_definition":  {KindModule, "name"},
		"type_definition":       {KindType, "declarator"},
	},
}

func isCLike(language string) bool { return language == "c" || language == "cpp" }
