package parser

// Capture query strings, one per supported language. Each query provides
// the named captures internal/extract expects: functions, methods,
// classes, imports, calls, plus language-specific additions (interfaces,
// structs/types, enums). Adapted from standardbeagle-lci's
// internal/parser/parser_language_setup.go, extended with an explicit
// `call` capture (the teacher's queries stopped at definitions; this
// module also needs call expressions for the Resolver).
const goQuery = `
(function_declaration name: (identifier) @function.name) @function
(method_declaration
    receiver: (parameter_list) @method.receiver
    name: (field_identifier) @method.name) @method
(type_declaration
    (type_spec name: (type_identifier) @type.name
        type: (struct_type))) @struct
(type_declaration
    (type_spec name: (type_identifier) @type.name
        type: (interface_type))) @interface
(import_spec path: (interpreted_string_literal) @import.path) @import
(call_expression function: (identifier) @call.name) @call
(call_expression
    function: (selector_expression
        operand: (identifier) @call.qualifier
        field: (field_identifier) @call.name)) @call
`

const pythonQuery = `
(class_definition
    body: (block
        (function_definition name: (identifier) @method.name) @method))
(function_definition name: (identifier) @function.name) @function
(class_definition name: (identifier) @class.name) @class
(import_statement) @import
(import_from_statement) @import
(call function: (identifier) @call.name) @call
(call
    function: (attribute
        object: (identifier) @call.qualifier
        attribute: (identifier) @call.name)) @call
`

const javascriptQuery = `
(function_declaration name: (identifier) @function.name) @function
(generator_function_declaration name: (identifier) @function.name) @function
(variable_declarator
    name: (identifier) @function.name
    value: [(arrow_function) (function_expression) (generator_function)]) @function
(method_definition name: (property_identifier) @method.name) @method
(class_declaration name: (identifier) @class.name) @class
(import_statement source: (string) @import.source) @import
(call_expression function: (identifier) @call.name) @call
(call_expression
    function: (member_expression
        object: (identifier) @call.qualifier
        property: (property_identifier) @call.name)) @call
`

const typescriptQuery = `
(function_declaration name: (identifier) @function.name) @function
(generator_function_declaration name: (identifier) @function.name) @function
(method_definition name: (property_identifier) @method.name) @method
(function_expression name: (identifier) @function.name) @function
(class_declaration name: (type_identifier) @class.name) @class
(interface_declaration name: (type_identifier) @interface.name) @interface
(type_alias_declaration name: (type_identifier) @type.name) @type
(enum_declaration name: (identifier) @enum.name) @enum
(import_statement source: (string) @import.source) @import
(call_expression function: (identifier) @call.name) @call
(call_expression
    function: (member_expression
        object: (identifier) @call.qualifier
        property: (property_identifier) @call.name)) @call
`

const rustQuery = `
(impl_item
    body: (declaration_list
        (function_item name: (identifier) @method.name) @method))
(trait_item
    body: (declaration_list
        (function_item name: (identifier) @method.name) @method))
(function_item name: (identifier) @function.name) @function
(struct_item name: (type_identifier) @struct.name) @struct
(enum_item name: (type_identifier) @enum.name) @enum
(trait_item name: (type_identifier) @interface.name) @interface
(impl_item
    trait: (type_identifier) @impl.trait
    type: (type_identifier) @impl.type) @impl
(use_declaration) @import
(call_expression function: (identifier) @call.name) @call
(call_expression
    function: (field_expression
        value: (identifier) @call.qualifier
        field: (field_identifier) @call.name)) @call
`

// cppQuery is deliberately shallow: C/C++ is declared file-level-only
// support (§4.4), so extracted symbols here are labeled at confidence
// capped at the Resolver's 0.39 band regardless of qualification.
const cppQuery = `
(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
(class_specifier name: (type_identifier) @class.name) @class
(struct_specifier name: (type_identifier) @struct.name) @struct
(enum_specifier name: (type_identifier) @enum.name) @enum
(preproc_include) @import
(call_expression function: (identifier) @call.name) @call
`
