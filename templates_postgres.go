package main

func init() {
	registerTemplateSet(postgresTemplateSet())
}

const pgColumn = `$(tableAlias)."$(columnName)"`

// pgQuoted wraps a text expression in the quoted, escaped field form.
func pgQuoted(expr string) string {
	return `case when ` + pgColumn + ` is null then '' else '"'||replace(replace(` + expr + `,'\','\\'),'"','\"')||'"' end`
}

// pgPlain wraps an expression whose output never needs escaping.
func pgPlain(expr string) string {
	return `case when ` + pgColumn + ` is null then '' else '"'||` + expr + `||'"' end`
}

const pgLogTail = `$(channelExpression),
                $(txIdExpression),
                $(sourceNodeExpression),
                $(externalSelect),
                $(createTimeExpression));`

func pgFunctionHead(event string) string {
	return `create or replace function $(defaultSchema)$(triggerName)() returns trigger as $function$
declare
    var_row_data $(lobType);
    var_old_data $(lobType);
begin
    $(custom_before_` + event + `_text)
`
}

func pgFunctionTail(event, timing string) string {
	return `    $(custom_on_` + event + `_text)
    return null;
end;
$function$ language plpgsql;
create trigger $(triggerName) after ` + timing + ` on $(schemaName)$(tableName)
for each row execute procedure $(defaultSchema)$(triggerName)();
`
}

func postgresTemplateSet() *TemplateSet {
	return &TemplateSet{
		Dialect:  "postgres",
		Encoding: BinaryHex,
		Columns: map[Category]ColumnTemplate{
			CategoryText: {Primary: pgQuoted(`cast(` + pgColumn + ` as text)`)},
			CategoryNumeric: {
				Primary:  pgPlain(`$(numberConversion)`),
				Fallback: pgPlain(`cast(` + pgColumn + ` as text)`),
			},
			CategoryBoolean: {
				Primary: `case when ` + pgColumn + ` is null then '' when ` + pgColumn + ` then '"1"' else '"0"' end`,
			},
			CategoryDate:        {Primary: pgPlain(`to_char(` + pgColumn + `, 'YYYY-MM-DD')`)},
			CategoryTime:        {Primary: pgPlain(`to_char(date '2000-01-01' + ` + pgColumn + `, 'HH24:MI:SS.US')||'000'`)},
			CategoryTimestamp:   {Primary: pgPlain(`to_char(` + pgColumn + `, 'YYYY-MM-DD HH24:MI:SS.US')||'000'`)},
			CategoryTimestampTZ: {Primary: pgPlain(`to_char(` + pgColumn + `, 'YYYY-MM-DD HH24:MI:SS.US"000 "TZH:TZM')`)},
			CategoryClob:        {Primary: pgQuoted(`cast(` + pgColumn + ` as text)`)},
			CategoryBlob:        {Primary: pgPlain(`encode(` + pgColumn + `, 'hex')`)},
			CategoryBinary:      {Primary: pgPlain(`encode(` + pgColumn + `, 'hex')`)},
			CategoryArray:       {Primary: pgQuoted(`cast(` + pgColumn + ` as text)`)},
			CategoryGeometry:    {Primary: pgQuoted(`ST_AsText(` + pgColumn + `)`)},
			CategoryXML:         {Primary: pgQuoted(`cast(` + pgColumn + ` as text)`)},
		},
		ColumnJoin:       "||','||",
		NumberConversion: `cast(cast(` + pgColumn + ` as numeric$(numberPrecisionSpec)) as text)`,
		NumberText:       `cast(` + pgColumn + ` as text)`,
		Expressions: map[string]string{
			"txIdExpression":               "cast(txid_current() as varchar(50))",
			"sourceNodeExpression":         "nullif(current_setting('$(prefixName).node_id', true), '')",
			"syncOnIncomingBatchCondition": "coalesce(current_setting('$(prefixName).sync_disabled', true), '') <> '1'",
		},
		CreateTime:      "CURRENT_TIMESTAMP",
		CreateTimeZone:  "CURRENT_TIMESTAMP AT TIME ZONE '%s'",
		Inline:          LobBinding{Type: "text", Changed: "var_row_data is distinct from var_old_data"},
		Lob:             LobBinding{Type: "text", Changed: "var_row_data is distinct from var_old_data"},
		Fallback:        LobBinding{Type: "text", Changed: "var_row_data is distinct from var_old_data"},
		DropTrigger:     `drop trigger if exists $(triggerName) on $(schemaName)$(tableName)`,
		SplitStatements: true,
		Structural: map[TriggerKind]string{
			KindInsert: pgFunctionHead("insert") + `    if $(syncOnInsertCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, row_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'I', $(triggerHistoryId),
                $(columns),
                ` + pgLogTail + `
        exception when others then
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, row_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'I', $(triggerHistoryId),
                $(fallbackColumns),
                ` + pgLogTail + `
        end;
    end if;
` + pgFunctionTail("insert", "insert"),
			KindInsertReload: pgFunctionHead("insert") + `    if $(syncOnInsertCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'R', $(triggerHistoryId),
                $(newKeys),
                ` + pgLogTail + `
        exception when others then
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'R', $(triggerHistoryId),
                $(toLobAlways)$(newKeys),
                ` + pgLogTail + `
        end;
    end if;
` + pgFunctionTail("insert", "insert"),
			KindUpdate: pgFunctionHead("update") + `    if $(syncOnUpdateCondition) and $(syncOnIncomingBatchCondition) then
        begin
            var_row_data := $(columns);
            var_old_data := $(oldColumns);
            if $(dataHasChangedCondition) then
                insert into $(defaultSchema)$(prefixName)_data
                    (table_name, event_type, trigger_hist_id, pk_data, row_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                    values('$(targetTableName)', 'U', $(triggerHistoryId),
                    $(oldKeys),
                    var_row_data,
                    var_old_data,
                    ` + pgLogTail + `
            end if;
        exception when others then
            var_row_data := $(fallbackColumns);
            var_old_data := $(fallbackOldColumns);
            if $(fallbackDataHasChangedCondition) then
                insert into $(defaultSchema)$(prefixName)_data
                    (table_name, event_type, trigger_hist_id, pk_data, row_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                    values('$(targetTableName)', 'U', $(triggerHistoryId),
                    $(oldKeys),
                    var_row_data,
                    var_old_data,
                    ` + pgLogTail + `
            end if;
        end;
    end if;
` + pgFunctionTail("update", "update"),
			KindUpdateReload: pgFunctionHead("update") + `    if $(syncOnUpdateCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'R', $(triggerHistoryId),
                $(oldKeys),
                ` + pgLogTail + `
        exception when others then
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'R', $(triggerHistoryId),
                $(toLobAlways)$(oldKeys),
                ` + pgLogTail + `
        end;
    end if;
` + pgFunctionTail("update", "update"),
			KindDelete: pgFunctionHead("delete") + `    if $(syncOnDeleteCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'D', $(triggerHistoryId),
                $(oldKeys),
                $(oldColumns),
                ` + pgLogTail + `
        exception when others then
            insert into $(defaultSchema)$(prefixName)_data
                (table_name, event_type, trigger_hist_id, pk_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)
                values('$(targetTableName)', 'D', $(triggerHistoryId),
                $(oldKeys),
                $(fallbackOldColumns),
                ` + pgLogTail + `
        end;
    end if;
` + pgFunctionTail("delete", "delete"),
			KindInitialLoad: `select $(queryHint) $(toLob)$(columns) from $(schemaName)$(tableName) t where $(whereClause)`,
		},
	}
}
