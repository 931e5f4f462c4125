/*
Package entitymapper maps Go structs to the attribute records NoSQL backends
store and builds backend-neutral queries over them.

The mapping engine is made of:
  - metadata: per-type field descriptors discovered once from `mapping` struct tags
  - converter: pluggable attribute converters, one shared instance per type
  - mapping: the entity converter (struct <-> record) and the query mapper,
    which builds queries keyed by field names
  - query: the native select/delete builders and condition trees
  - repository: a typed CRUD facade and query methods compiled from names

Backends implement datastore.DataStore: DynamoDB (datastore/ddb), Redis
(datastore/kv), MongoDB (datastore/document) and an in-memory store for tests
(datastore/mock).

Basic Usage:

	type Person struct {
	    ID   int64  `mapping:",id"`
	    Name string `mapping:"name"`
	    Age  int    `mapping:"age"`
	}

	cfg, _ := config.Load()
	m, _ := entitymapper.NewFromConfig(cfg)
	_ = m.Connect(ctx, cfg)

	people, _ := entitymapper.RepositoryFor[Person](m, entitymapper.DynamoDBStore)
	_ = people.Save(ctx, &Person{ID: 1, Name: "Ada", Age: 36})

	q, _ := m.SelectFrom(Person{}).Where("age").Gt(30).OrderBy("name").Asc().Build()
	adults, _ := people.Select(ctx, q)
*/
package entitymapper
