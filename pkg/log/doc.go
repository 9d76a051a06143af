/*
Package log provides structured logging for pvcd using zerolog: a global
logger configured once via Init, plus component/node/domain/task context
loggers so every line carries the fields an operator needs to grep for
(component=fencing node_id=hv03 domain_uuid=...).
*/
package log
