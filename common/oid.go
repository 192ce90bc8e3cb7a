package common

// Oid is object id
// postgres uses it to identify databases, tablespaces, relations and so on
// see https://github.com/postgres/postgres/blob/2f47715cc8649f854b1df28dfc338af9801db217/src/include/postgres_ext.h#L28-L31
type Oid uint32

// TransactionID is transaction id, which is called TransactionId/xid in postgres
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/c.h#L598
type TransactionID uint32

// InvalidTransactionID is never assigned to any transaction by postgres
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/transam.h#L31
const InvalidTransactionID TransactionID = 0
